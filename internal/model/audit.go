package model

import (
	"time"
)

// AuditLog is one relayed request as seen by the audit trail.
type AuditLog struct {
	ID        string `json:"id"`
	Caller    string `json:"caller"` // gateway key fingerprint or client IP
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody string `json:"request_body"` // redacted

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Upstream route taken, signed paths, rpc endpoint and the like.
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
