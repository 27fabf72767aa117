package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const HeaderUpstreamRoute = "X-Upstream-Route"

// relay writes the upstream status and body back unmodified.
func relay(c *gin.Context, resp *dispatch.Response) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
		if len(resp.Body) > 0 && resp.Body[0] != '{' && resp.Body[0] != '[' {
			contentType = "text/plain; charset=utf-8"
		}
	}
	if resp.Route != "" {
		c.Header(HeaderUpstreamRoute, resp.Route)
		middleware.AddAuditContext(c, "upstream_route", resp.Route)
	}
	middleware.AddAuditContext(c, "upstream_status", resp.StatusCode)
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// fail hands err to ErrorHandler.
func fail(c *gin.Context, err error) {
	middleware.AddAuditContext(c, "error", err.Error())
	_ = c.Error(err)
}

func readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		return nil, true
	}
	body, err := c.GetRawData()
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("failed to read request body"))
		return nil, false
	}
	return body, true
}

// serverCredentials guards every path that signs with a key held by this
// process. Anonymous callers must bring their own credentials.
func serverCredentials(c *gin.Context, what string) error {
	if middleware.Trusted(c) {
		return nil
	}
	return apperrors.New(apperrors.ErrAuthFailed, "a known "+middleware.HeaderGatewayKey+" is required to use the server "+what, nil)
}
