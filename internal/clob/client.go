package clob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/signer"
)

const (
	PathTime             = "/time"
	PathAPIKey           = "/auth/api-key"
	PathDeriveAPIKey     = "/auth/derive-api-key"
	PathOrder            = "/order"
	PathBalanceAllowance = "/balance-allowance"
)

// L2Auth is the credential set and signer address for one L2 call.
type L2Auth struct {
	Creds   auth.APIKey
	Address string
}

type Config struct {
	BaseURL       string
	UseServerTime bool
	Default       L2Auth
}

// Client prepares CLOB requests, signs them and hands them to the router.
type Client struct {
	router   *dispatch.Router
	baseURL  string
	clock    signer.Clock
	l1       *signer.ClobAuthSigner
	store    *CredentialStore
	fallback L2Auth
}

func NewClient(router *dispatch.Router, l1 *signer.ClobAuthSigner, store *CredentialStore, cfg Config) *Client {
	if store == nil {
		store = NewCredentialStore()
	}
	c := &Client{
		router:   router,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		l1:       l1,
		store:    store,
		fallback: cfg.Default,
	}
	if cfg.UseServerTime {
		c.clock = signer.NewServerClock(c)
	} else {
		c.clock = signer.LocalClock{}
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) HasL1Signer() bool { return c.l1 != nil }

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// Time relays GET /time.
func (c *Client) Time(ctx context.Context) (*dispatch.Response, error) {
	return c.router.Dispatch(ctx, &dispatch.Request{Method: http.MethodGet, URL: c.url(PathTime)})
}

// ServerTime returns the CLOB's clock in unix seconds.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	resp, err := c.Time(ctx)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, apperrors.New(apperrors.ErrUpstream, "server time: "+http.StatusText(resp.StatusCode), nil)
	}
	return parseServerTime(resp.Body)
}

func parseServerTime(body []byte) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if ts, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ts, nil
	}
	var wrapped struct {
		Time json.Number `json:"time"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Time != "" {
		if f, err := wrapped.Time.Float64(); err == nil {
			return int64(f), nil
		}
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(f), nil
	}
	return 0, apperrors.NewDecode("unrecognized server time", nil)
}

// L1Auth signs a ClobAuth header set server-side.
func (c *Client) L1Auth(ctx context.Context, nonce int64) (*signer.L1Headers, error) {
	if c.l1 == nil {
		return nil, apperrors.NewConfiguration("no L1 private key configured; supply POLY_* headers")
	}
	return c.l1.Headers(c.clock.Now(ctx), nonce)
}

func (c *Client) CreateAPIKey(ctx context.Context, h *signer.L1Headers) (*dispatch.Response, error) {
	return c.l1Call(ctx, http.MethodPost, PathAPIKey, h)
}

func (c *Client) DeriveAPIKey(ctx context.Context, h *signer.L1Headers) (*dispatch.Response, error) {
	return c.l1Call(ctx, http.MethodGet, PathDeriveAPIKey, h)
}

func (c *Client) DeleteAPIKey(ctx context.Context, h *signer.L1Headers) (*dispatch.Response, error) {
	resp, err := c.l1Call(ctx, http.MethodDelete, PathAPIKey, h)
	if err == nil && resp.OK() {
		c.store.Delete(h.Address)
	}
	return resp, err
}

func (c *Client) l1Call(ctx context.Context, method, path string, h *signer.L1Headers) (*dispatch.Response, error) {
	if err := validateL1(h); err != nil {
		return nil, err
	}
	return c.router.Dispatch(ctx, &dispatch.Request{
		Method: method,
		URL:    c.url(path),
		Header: h.Header(),
	})
}

func validateL1(h *signer.L1Headers) error {
	if h == nil || h.Address == "" || h.Signature == "" || h.Timestamp == "" {
		return apperrors.NewInvalidRequest("POLY_ADDRESS, POLY_SIGNATURE and POLY_TIMESTAMP are required")
	}
	if h.Nonce == "" {
		h.Nonce = "0"
	}
	return nil
}

type apiKeyResponse struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// CreateOrDeriveAPIKey derives the existing key for the L1 signer and creates
// one only when none exists. The result is cached for later L2 calls.
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, h *signer.L1Headers) (*auth.APIKey, error) {
	resp, err := c.DeriveAPIKey(ctx, h)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		logger.Info("no api key to derive, creating", "address", h.Address)
		resp, err = c.CreateAPIKey(ctx, h)
		if err != nil {
			return nil, err
		}
	}
	if !resp.OK() {
		return nil, apperrors.New(apperrors.ErrUpstream, strings.TrimSpace(string(resp.Body)), nil)
	}

	var parsed apiKeyResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, apperrors.NewDecode("invalid api key response", err)
	}
	if parsed.APIKey == "" || parsed.Secret == "" || parsed.Passphrase == "" {
		return nil, apperrors.NewDecode("incomplete api key response", nil)
	}
	creds := auth.APIKey{Key: parsed.APIKey, Secret: parsed.Secret, Passphrase: parsed.Passphrase}
	c.store.Put(h.Address, creds)
	return &creds, nil
}

// ResolveAuth fills in whatever the caller left out. Credentials come from
// the caller, then from the cache for the address, then from configuration.
func (c *Client) ResolveAuth(override L2Auth) (L2Auth, error) {
	out := override
	if out.Address == "" {
		out.Address = c.fallback.Address
	}
	if emptyCreds(out.Creds) {
		if cached, ok := c.store.Get(out.Address); ok && out.Address != "" {
			out.Creds = cached
		} else {
			out.Creds = c.fallback.Creds
		}
	}
	if out.Creds.Key == "" || out.Creds.Secret == "" || out.Creds.Passphrase == "" {
		return L2Auth{}, apperrors.NewConfiguration("missing L2 api credentials")
	}
	if out.Address == "" {
		return L2Auth{}, apperrors.NewConfiguration("missing signer address")
	}
	return out, nil
}

func emptyCreds(k auth.APIKey) bool {
	return k.Key == "" && k.Secret == "" && k.Passphrase == ""
}

// PostOrder signs and submits a signed order payload. The payload must carry
// an "order" object; "owner" defaults to the api key and "orderType" to GTC.
func (c *Client) PostOrder(ctx context.Context, a L2Auth, body []byte) (*dispatch.Response, error) {
	payload, err := normalizeOrder(body, a.Creds.Key)
	if err != nil {
		return nil, err
	}
	bodyStr := string(payload)
	headers, _, err := signer.NewL2Headers(a.Creds, a.Address, c.clock.Now(ctx), http.MethodPost, PathOrder, &bodyStr)
	if err != nil {
		return nil, err
	}
	h := headers.OrderHeader()
	h.Set("Content-Type", "application/json")
	return c.router.Dispatch(ctx, &dispatch.Request{
		Method: http.MethodPost,
		URL:    c.url(PathOrder),
		Header: h,
		Body:   payload,
	})
}

func normalizeOrder(body []byte, apiKey string) ([]byte, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, apperrors.NewInvalidRequest("order body is required")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, apperrors.NewInvalidRequest("order body must be a JSON object")
	}
	order, ok := fields["order"]
	if !ok || string(order) == "null" {
		return nil, apperrors.NewInvalidRequest("order is required")
	}
	if _, ok := fields["owner"]; !ok {
		owner, _ := json.Marshal(apiKey)
		fields["owner"] = owner
	}
	if _, ok := fields["orderType"]; !ok {
		fields["orderType"] = json.RawMessage(`"GTC"`)
	}
	return json.Marshal(fields)
}

// BalanceAllowance queries GET /balance-allowance. Only the path is signed;
// the query string is appended afterwards.
func (c *Client) BalanceAllowance(ctx context.Context, a L2Auth, query url.Values) (*dispatch.Response, error) {
	switch strings.ToUpper(query.Get("asset_type")) {
	case "COLLATERAL":
	case "CONDITIONAL":
		if query.Get("token_id") == "" {
			return nil, apperrors.NewInvalidRequest("token_id is required for CONDITIONAL balances")
		}
	default:
		return nil, apperrors.NewInvalidRequest("asset_type must be COLLATERAL or CONDITIONAL")
	}

	headers, _, err := signer.NewL2Headers(a.Creds, a.Address, c.clock.Now(ctx), http.MethodGet, PathBalanceAllowance, nil)
	if err != nil {
		return nil, err
	}
	target := c.url(PathBalanceAllowance)
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return c.router.Dispatch(ctx, &dispatch.Request{
		Method: http.MethodGet,
		URL:    target,
		Header: headers.BalanceHeader(),
	})
}
