package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(config.AuthConfig{RequireAPIKey: true, APIKeys: []string{"good"}}))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, Caller(c)) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/x", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/x", map[string]string{HeaderGatewayKey: "bad"}).Code)

	rec := serve(r, "GET", "/x", map[string]string{HeaderGatewayKey: "good"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "key:")
	assert.NotContains(t, rec.Body.String(), "good")
}

func TestAuthMiddleware_Optional(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(config.AuthConfig{}))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, Caller(c)) })

	rec := serve(r, "GET", "/x", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ip:")
}

func TestAuthMiddleware_TrustsOnlyConfiguredKeys(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(config.AuthConfig{APIKeys: []string{"good"}}))
	r.GET("/x", func(c *gin.Context) {
		if Trusted(c) {
			c.String(http.StatusOK, "trusted")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "trusted", serve(r, "GET", "/x", map[string]string{HeaderGatewayKey: "good"}).Body.String())
	assert.Equal(t, "anonymous", serve(r, "GET", "/x", map[string]string{HeaderGatewayKey: "made-up"}).Body.String())
	assert.Equal(t, "anonymous", serve(r, "GET", "/x", nil).Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(config.AuthConfig{}), RateLimitMiddleware(NewLimiterRegistry(0.001, 2)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/x", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/x", nil).Code)
	rec := serve(r, "GET", "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://terminal.example"}, MaxAgeSeconds: 60}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://terminal.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://terminal.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "POLY_SIGNATURE")

	rec = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), ReadOnlyMiddleware(true))
	r.POST("/v1/clob/order", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/v1/cloud/chat", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/clob/time", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, "POST", "/v1/clob/order", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "POST", "/v1/cloud/chat", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/v1/clob/time", nil).Code)
}

func TestIdempotencyMiddleware_Replays(t *testing.T) {
	var calls int32
	r := gin.New()
	r.Use(ErrorHandler(), IdempotencyMiddleware(NewInMemIdempotencyStore(time.Minute)))
	r.POST("/order", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusOK, gin.H{"n": n})
	})

	h := map[string]string{HeaderIdempotencyKey: "abc"}
	first := serve(r, "POST", "/order", h)
	second := serve(r, "POST", "/order", h)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))

	serve(r, "POST", "/order", map[string]string{HeaderIdempotencyKey: "other"})
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_DoesNotCacheErrors(t *testing.T) {
	var calls int32
	r := gin.New()
	r.Use(ErrorHandler(), IdempotencyMiddleware(NewInMemIdempotencyStore(time.Minute)))
	r.POST("/order", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.Error(apperrors.NewInvalidRequest("order is required"))
	})

	h := map[string]string{HeaderIdempotencyKey: "abc"}
	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/order", h).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, "POST", "/order", h).Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_DoesNotCacheBlockedStatuses(t *testing.T) {
	var calls int32
	r := gin.New()
	r.Use(ErrorHandler(), IdempotencyMiddleware(NewInMemIdempotencyStore(time.Minute), http.StatusForbidden, http.StatusTooManyRequests))
	r.POST("/order", func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			c.Data(http.StatusTooManyRequests, "application/json", []byte(`{"error":"rate limited"}`))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderID": "0x1"})
	})

	h := map[string]string{HeaderIdempotencyKey: "abc"}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "POST", "/order", h).Code)
	retry := serve(r, "POST", "/order", h)
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Empty(t, retry.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	replay := serve(r, "POST", "/order", h)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInMemIdempotencyStore_Expires(t *testing.T) {
	s := NewInMemIdempotencyStore(time.Minute)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	_, hit := s.GetOrLock("k")
	assert.False(t, hit)
	s.Save("k", 200, "application/json", []byte("{}"))

	_, hit = s.GetOrLock("k")
	assert.True(t, hit)

	now = now.Add(2 * time.Minute)
	_, hit = s.GetOrLock("k")
	assert.False(t, hit)
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		c.Error(apperrors.NewConfiguration("missing L2 api credentials"))
	})

	rec := serve(r, "GET", "/x", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"CONFIGURATION_ERROR","message":"missing L2 api credentials","suggestion":"Check the service configuration for missing keys or secrets."}`, rec.Body.String())
}
