package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const (
	HeaderGatewayKey  = "X-Gateway-Key"
	ContextCallerKey  = "caller"
	ContextTrustedKey = "gateway_trusted"
)

// AuthMiddleware identifies the caller. With auth.require_api_key set, a
// known X-Gateway-Key is mandatory; otherwise callers are keyed by IP. A known
// key also marks the caller trusted, see Trusted.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if cfg.RequireAPIKey {
				c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
				c.Abort()
				return
			}
			c.Set(ContextCallerKey, "ip:"+c.ClientIP())
			c.Next()
			return
		}

		if cfg.RequireAPIKey && !knownKey(cfg.APIKeys, apiKey) {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}

		c.Set(ContextCallerKey, "key:"+fingerprint(apiKey))
		c.Set(ContextTrustedKey, knownKey(cfg.APIKeys, apiKey))
		c.Next()
	}
}

// Caller returns the identity set by AuthMiddleware.
func Caller(c *gin.Context) string {
	if v, ok := c.Get(ContextCallerKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "ip:" + c.ClientIP()
}

// Trusted reports whether the caller presented a configured gateway key.
// Only trusted callers may use credentials held by the server.
func Trusted(c *gin.Context) bool {
	return c.GetBool(ContextTrustedKey)
}

func knownKey(keys []string, candidate string) bool {
	for _, k := range keys {
		if k != "" && subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
