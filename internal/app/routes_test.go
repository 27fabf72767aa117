package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{AdminKey: "admin-secret"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		Polymarket: config.PolymarketConfig{
			ClobURL:        "http://127.0.0.1:1",
			ChainID:        137,
			TimeoutSeconds: 1,
		},
		Chain: config.ChainConfig{
			ChainID:      137,
			RPCURLs:      []string{"http://127.0.0.1:1"},
			USDCAddress:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			USDCeAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		RateLimit:   config.RateLimitConfig{QPS: 100, Burst: 100},
		Idempotency: config.IdempotencyConfig{TTLSeconds: 60},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config) (*gin.Engine, *service.AuditService) {
	gin.SetMode(gin.TestMode)
	deps, err := Build(cfg)
	require.NoError(t, err)
	auditSvc := service.NewAuditService(service.AuditOptions{BufferSize: 50})
	t.Cleanup(auditSvc.Close)
	return NewEngine(cfg, deps, auditSvc), auditSvc
}

func TestHealthReportsUpstreams(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status    string `json:"status"`
		Upstreams struct {
			Proxy    bool `json:"proxy_configured"`
			RPCs     int  `json:"rpc_endpoints"`
			L1Signer bool `json:"l1_signer"`
		} `json:"upstreams"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Upstreams.Proxy)
	assert.Equal(t, 1, body.Upstreams.RPCs)
	assert.False(t, body.Upstreams.L1Signer)
}

func TestReadOnlyBlocksOrders(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ReadOnly = true
	r, _ := newTestEngine(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/clob/order", strings.NewReader(`{"order":{}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "READ_ONLY")
}

func TestRequireAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RequireAPIKey = true
	cfg.Auth.APIKeys = []string{"gw-key"}
	r, _ := newTestEngine(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/swap/prices", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/swap/prices", nil)
	req.Header.Set("X-Gateway-Key", "gw-key")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAuditTrail(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/balances/not-an-address", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit?limit=10", nil)
	req.Header.Set("X-Admin-Key", "admin-secret")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []model.AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	var found bool
	for _, e := range entries {
		if e.Path == "/v1/balances/not-an-address" {
			found = true
			assert.Equal(t, http.StatusBadRequest, e.StatusCode)
		}
	}
	assert.True(t, found)
}

func TestServerKeyRoutesRequireKnownGatewayKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Polymarket.PrivateKey = hexutil.Encode(crypto.FromECDSA(key))
	cfg.Auth.APIKeys = []string{"gw-key"}
	r, _ := newTestEngine(t, cfg)

	send := func(gatewayKey string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/clob/l1-headers", nil)
		req.Header.Set("Origin", "https://evil.example")
		if gatewayKey != "" {
			req.Header.Set("X-Gateway-Key", gatewayKey)
		}
		r.ServeHTTP(w, req)
		return w
	}

	for _, gatewayKey := range []string{"", "guessed"} {
		w := send(gatewayKey)
		assert.Equal(t, http.StatusUnauthorized, w.Code, gatewayKey)
		assert.Contains(t, w.Body.String(), "AUTH_FAILED")
		assert.NotContains(t, w.Body.String(), "POLY_SIGNATURE")
	}

	w := send("gw-key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "POLY_SIGNATURE")
}

func TestWalletSubmitRequiresKnownGatewayKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Chain.OwnerPrivateKey = hexutil.Encode(crypto.FromECDSA(key))
	r, _ := newTestEngine(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/wallet/exec", strings.NewReader(`{"to":"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174","submit":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_FAILED")
}
