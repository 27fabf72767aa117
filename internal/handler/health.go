package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Upstreams lists what the relay talks to, for /health.
type Upstreams struct {
	Clob       string `json:"clob"`
	Proxy      bool   `json:"proxy_configured"`
	RPCs       int    `json:"rpc_endpoints"`
	L1Signer   bool   `json:"l1_signer"`
	SafeSubmit bool   `json:"safe_submission"`
	Cloud      bool   `json:"cloud"`
	Agent      bool   `json:"agent"`
	ReadOnly   bool   `json:"read_only"`
}

func Health(up Upstreams) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "upstreams": up})
	}
}
