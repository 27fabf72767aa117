package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/config"
)

var corsAllowedHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	HeaderGatewayKey,
	HeaderIdempotencyKey,
	"X-Clob-Api-Key",
	"X-Clob-Secret",
	"X-Clob-Passphrase",
	"X-Clob-Address",
	"POLY_ADDRESS",
	"POLY_SIGNATURE",
	"POLY_TIMESTAMP",
	"POLY_NONCE",
}, ", ")

// CORSMiddleware lets the browser terminal call the relay directly.
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	maxAge := strconv.Itoa(cfg.MaxAgeSeconds)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				if allowAll {
					c.Header("Access-Control-Allow-Origin", "*")
				} else {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
				}
				c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", corsAllowedHeaders)
				c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Upstream-Route")
				c.Header("Access-Control-Max-Age", maxAge)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
