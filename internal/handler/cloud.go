package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/cloud"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

type CloudHandler struct {
	client *cloud.Client
}

func NewCloudHandler(client *cloud.Client) *CloudHandler {
	return &CloudHandler{client: client}
}

func (h *CloudHandler) Chat(c *gin.Context) {
	var req cloud.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest(err.Error()))
		return
	}
	resp, err := h.client.Chat(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *CloudHandler) TTS(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	resp, err := h.client.TTS(c.Request.Context(), body)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *CloudHandler) STT(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	resp, err := h.client.STT(c.Request.Context(), c.GetHeader("Content-Type"), body)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *CloudHandler) Image(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	resp, err := h.client.Image(c.Request.Context(), body)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

type AgentHandler struct {
	client *cloud.AgentClient
}

func NewAgentHandler(client *cloud.AgentClient) *AgentHandler {
	return &AgentHandler{client: client}
}

func (h *AgentHandler) Status(c *gin.Context) {
	resp, err := h.client.Status(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *AgentHandler) Markets(c *gin.Context) {
	resp, err := h.client.Markets(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

// Proxy relays GET /v1/agent/proxy/*path to allow-listed agent paths.
func (h *AgentHandler) Proxy(c *gin.Context) {
	resp, err := h.client.Proxy(c.Request.Context(), c.Request.Method, c.Param("path"), c.Request.URL.Query(), nil)
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}
