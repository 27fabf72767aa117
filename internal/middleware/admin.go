package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const HeaderAdminKey = "X-Admin-Key"

func AdminMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "admin key not configured", nil))
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderAdminKey)), []byte(adminKey)) != 1 {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
