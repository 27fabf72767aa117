package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/market"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
)

type AgentConfig struct {
	BaseURL      string
	APIKey       string
	AllowedPaths []string
	Timeout      time.Duration
}

// AgentClient relays read calls to the autonomous trading agent backend.
type AgentClient struct {
	client  *resty.Client
	allowed []string
	enabled bool
}

func NewAgentClient(cfg AgentConfig) *AgentClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &AgentClient{client: client, allowed: cfg.AllowedPaths, enabled: cfg.BaseURL != ""}
}

func (a *AgentClient) Status(ctx context.Context) (*dispatch.Response, error) {
	return a.Proxy(ctx, http.MethodGet, "/status", nil, nil)
}

// MarketsReply is the deduplicated market snapshot list.
type MarketsReply struct {
	Markets []market.Snapshot `json:"markets"`
	Count   int               `json:"count"`
}

// Markets returns the agent's market snapshots, one per market_id. A body
// that is not a snapshot list is passed through untouched.
func (a *AgentClient) Markets(ctx context.Context, query url.Values) (*dispatch.Response, error) {
	resp, err := a.Proxy(ctx, http.MethodGet, "/markets", query, nil)
	if err != nil || !resp.OK() {
		return resp, err
	}
	snaps, err := market.DecodeSnapshots(resp.Body)
	if err != nil {
		logger.Warn("agent markets not decodable, relaying raw body", "error", err)
		return resp, nil
	}
	deduped := market.Dedupe(snaps)
	body, err := json.Marshal(MarketsReply{Markets: deduped, Count: len(deduped)})
	if err != nil {
		return nil, apperrors.NewDecode("failed to encode markets", err)
	}
	return &dispatch.Response{
		StatusCode: resp.StatusCode,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       body,
		Route:      resp.Route,
	}, nil
}

func (a *AgentClient) Enabled() bool { return a.enabled }

// Proxy relays a call to an allow-listed agent path.
func (a *AgentClient) Proxy(ctx context.Context, method, p string, query url.Values, body []byte) (*dispatch.Response, error) {
	if !a.enabled {
		return nil, apperrors.NewConfiguration("agent backend not configured")
	}
	clean := path.Clean("/" + strings.TrimPrefix(p, "/"))
	if !a.Allowed(clean) {
		return nil, apperrors.New(apperrors.ErrNotFound, "agent path not allowed: "+clean, nil)
	}
	req := a.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if len(body) > 0 {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, clean)
	return toResponse(resp, err)
}

// Allowed reports whether p equals or sits under an allow-listed path.
func (a *AgentClient) Allowed(p string) bool {
	for _, prefix := range a.allowed {
		prefix = "/" + strings.Trim(prefix, "/")
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
