package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

// ReadOnlyMiddleware rejects state-changing calls. Cloud and agent relays
// stay open since they never touch funds or keys.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/v1/cloud/") || strings.HasPrefix(path, "/v1/agent/") {
			c.Next()
			return
		}
		c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
		c.Abort()
	}
}
