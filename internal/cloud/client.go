package cloud

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

type Config struct {
	BaseURL      string
	APIKey       string
	ChatPath     string
	TTSPath      string
	STTPath      string
	ImagePath    string
	DefaultModel string
	Timeout      time.Duration
}

// Client relays chat, speech and image calls to ElizaOS Cloud with the
// server's bearer key.
type Client struct {
	client *resty.Client
	cfg    Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{client: client, cfg: cfg}
}

func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatReply is the reshaped chat answer: the first choice's text plus the
// untouched upstream payload.
type ChatReply struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw"`
}

type completion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*dispatch.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, apperrors.NewInvalidRequest("messages are required")
	}
	if req.Model == "" {
		req.Model = c.cfg.DefaultModel
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.cfg.ChatPath)
	out, err := toResponse(resp, err)
	if err != nil || !out.OK() {
		return out, err
	}
	return reshapeChat(out), nil
}

// reshapeChat leaves non-JSON bodies as they are so the caller still sees
// the raw text.
func reshapeChat(resp *dispatch.Response) *dispatch.Response {
	var parsed completion
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return resp
	}
	reply := ChatReply{Raw: json.RawMessage(resp.Body)}
	if len(parsed.Choices) > 0 {
		reply.Text = parsed.Choices[0].Message.Content
		if reply.Text == "" {
			reply.Text = parsed.Choices[0].Text
		}
	}
	body, err := json.Marshal(reply)
	if err != nil {
		return resp
	}
	header := resp.Header.Clone()
	if header == nil {
		header = make(map[string][]string)
	}
	header.Set("Content-Type", "application/json")
	header.Del("Content-Length")
	return &dispatch.Response{StatusCode: resp.StatusCode, Header: header, Body: body, Route: resp.Route}
}

// TTS forwards a JSON synthesis request; the audio comes back verbatim.
func (c *Client) TTS(ctx context.Context, body []byte) (*dispatch.Response, error) {
	return c.forward(ctx, c.cfg.TTSPath, "application/json", body)
}

// STT forwards an uploaded recording with the caller's content type.
func (c *Client) STT(ctx context.Context, contentType string, body []byte) (*dispatch.Response, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.forward(ctx, c.cfg.STTPath, contentType, body)
}

func (c *Client) Image(ctx context.Context, body []byte) (*dispatch.Response, error) {
	return c.forward(ctx, c.cfg.ImagePath, "application/json", body)
}

func (c *Client) forward(ctx context.Context, path, contentType string, body []byte) (*dispatch.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, apperrors.NewInvalidRequest("request body is required")
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(path)
	return toResponse(resp, err)
}

func (c *Client) ready() error {
	if !c.Enabled() {
		return apperrors.NewConfiguration("cloud api key not configured")
	}
	return nil
}

func toResponse(resp *resty.Response, err error) (*dispatch.Response, error) {
	if err != nil {
		return nil, apperrors.NewTransport(err)
	}
	return &dispatch.Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Route:      dispatch.RouteDirect,
	}, nil
}
