package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

func newAgent(url string) *AgentClient {
	return NewAgentClient(AgentConfig{BaseURL: url, APIKey: "agent-key", AllowedPaths: []string{"/status", "/markets", "positions"}})
}

func TestAgentMarkets_Dedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"market_id":"m1","recorded_at":"2025-03-01T00:00:00Z","price":0.2},
			{"market_id":"m1","recorded_at":"2025-03-02T00:00:00Z","price":0.3}
		]`))
	}))
	defer srv.Close()

	resp, err := newAgent(srv.URL).Markets(context.Background(), map[string][]string{"limit": {"50"}})
	require.NoError(t, err)

	var reply struct {
		Markets []map[string]any `json:"markets"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &reply))
	assert.Equal(t, 1, reply.Count)
	assert.Equal(t, 0.3, reply.Markets[0]["price"])
}

func TestAgentMarkets_RawOnDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("agent warming up"))
	}))
	defer srv.Close()

	resp, err := newAgent(srv.URL).Markets(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "agent warming up", string(resp.Body))
}

func TestAgentMarkets_RelaysErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"agent offline"}`))
	}))
	defer srv.Close()

	resp, err := newAgent(srv.URL).Markets(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"agent offline"}`, string(resp.Body))
}

func TestAgentProxy_AllowList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer agent-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	a := newAgent(srv.URL)
	resp, err := a.Proxy(context.Background(), http.MethodGet, "positions/open", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/positions/open", string(resp.Body))

	_, err = a.Proxy(context.Background(), http.MethodGet, "/positions/../admin", nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = a.Proxy(context.Background(), http.MethodGet, "/statusx", nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAgent_NotConfigured(t *testing.T) {
	_, err := NewAgentClient(AgentConfig{}).Status(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}
