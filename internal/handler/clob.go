package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/signer"
)

// Per-request L2 credentials supplied by the terminal.
const (
	HeaderClobAPIKey     = "X-Clob-Api-Key"
	HeaderClobSecret     = "X-Clob-Secret"
	HeaderClobPassphrase = "X-Clob-Passphrase"
	HeaderClobAddress    = "X-Clob-Address"
)

type ClobHandler struct {
	client *clob.Client
}

func NewClobHandler(client *clob.Client) *ClobHandler {
	return &ClobHandler{client: client}
}

func (h *ClobHandler) Time(c *gin.Context) {
	resp, err := h.client.Time(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

// l1Headers takes the caller's POLY_* headers when present and otherwise
// signs with the server's L1 key, for trusted callers only.
func (h *ClobHandler) l1Headers(c *gin.Context) (*signer.L1Headers, error) {
	if sig := c.GetHeader("POLY_SIGNATURE"); sig != "" {
		return &signer.L1Headers{
			Address:   c.GetHeader("POLY_ADDRESS"),
			Signature: sig,
			Timestamp: c.GetHeader("POLY_TIMESTAMP"),
			Nonce:     c.GetHeader("POLY_NONCE"),
		}, nil
	}
	if !h.client.HasL1Signer() {
		return nil, apperrors.NewInvalidRequest("POLY_ADDRESS, POLY_SIGNATURE and POLY_TIMESTAMP headers are required")
	}
	if err := serverCredentials(c, "L1 key"); err != nil {
		return nil, err
	}
	nonce := int64(0)
	if raw := c.Query("nonce"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return nil, apperrors.NewInvalidRequest("nonce must be a non-negative integer")
		}
		nonce = n
	}
	return h.client.L1Auth(c.Request.Context(), nonce)
}

func (h *ClobHandler) CreateAPIKey(c *gin.Context) {
	headers, err := h.l1Headers(c)
	if err != nil {
		fail(c, err)
		return
	}
	resp, err := h.client.CreateAPIKey(c.Request.Context(), headers)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *ClobHandler) DeriveAPIKey(c *gin.Context) {
	headers, err := h.l1Headers(c)
	if err != nil {
		fail(c, err)
		return
	}
	resp, err := h.client.DeriveAPIKey(c.Request.Context(), headers)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *ClobHandler) DeleteAPIKey(c *gin.Context) {
	headers, err := h.l1Headers(c)
	if err != nil {
		fail(c, err)
		return
	}
	resp, err := h.client.DeleteAPIKey(c.Request.Context(), headers)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

// EnsureAPIKey derives or creates credentials and returns them.
func (h *ClobHandler) EnsureAPIKey(c *gin.Context) {
	headers, err := h.l1Headers(c)
	if err != nil {
		fail(c, err)
		return
	}
	creds, err := h.client.CreateOrDeriveAPIKey(c.Request.Context(), headers)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"apiKey":     creds.Key,
		"secret":     creds.Secret,
		"passphrase": creds.Passphrase,
		"address":    headers.Address,
	})
}

// L1Headers returns a server-signed ClobAuth header set for the terminal to
// use against the CLOB directly.
func (h *ClobHandler) L1Headers(c *gin.Context) {
	if err := serverCredentials(c, "L1 key"); err != nil {
		fail(c, err)
		return
	}
	if !h.client.HasL1Signer() {
		fail(c, apperrors.NewConfiguration("no L1 private key configured"))
		return
	}
	var req model.L1SignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}
	if req.Nonce < 0 {
		fail(c, apperrors.NewInvalidRequest("nonce must be a non-negative integer"))
		return
	}
	headers, err := h.client.L1Auth(c.Request.Context(), req.Nonce)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, headers)
}

// l2Auth resolves L2 credentials. Untrusted callers must supply all four
// X-Clob-* headers so nothing falls back to configured or cached keys.
func (h *ClobHandler) l2Auth(c *gin.Context) (clob.L2Auth, error) {
	a := clob.L2Auth{
		Creds: auth.APIKey{
			Key:        c.GetHeader(HeaderClobAPIKey),
			Secret:     c.GetHeader(HeaderClobSecret),
			Passphrase: c.GetHeader(HeaderClobPassphrase),
		},
		Address: c.GetHeader(HeaderClobAddress),
	}
	if a.Creds.Key == "" || a.Creds.Secret == "" || a.Creds.Passphrase == "" || a.Address == "" {
		if err := serverCredentials(c, "L2 credentials"); err != nil {
			return clob.L2Auth{}, err
		}
	}
	return h.client.ResolveAuth(a)
}

func (h *ClobHandler) PostOrder(c *gin.Context) {
	a, err := h.l2Auth(c)
	if err != nil {
		fail(c, err)
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	resp, err := h.client.PostOrder(c.Request.Context(), a, body)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "signed_path", clob.PathOrder)
	relay(c, resp)
}

func (h *ClobHandler) BalanceAllowance(c *gin.Context) {
	a, err := h.l2Auth(c)
	if err != nil {
		fail(c, err)
		return
	}
	resp, err := h.client.BalanceAllowance(c.Request.Context(), a, c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}
