package dispatch

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
)

// Endpoint is one candidate RPC URL and its position in the ladder.
type Endpoint struct {
	URL   string
	Index int
}

// Host is the endpoint without userinfo, path or query. Provider URLs often
// carry an api key there, so only Host is logged or returned to callers.
func (e Endpoint) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		return "rpc[" + strconv.Itoa(e.Index) + "]"
	}
	return u.Scheme + "://" + u.Host
}

// redact replaces the full endpoint URL in err's message with its host.
func (e Endpoint) redact(err error) error {
	msg := err.Error()
	if e.URL == "" || !strings.Contains(msg, e.URL) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, e.URL, e.Host()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (r *redactedError) Error() string { return r.msg }
func (r *redactedError) Unwrap() error { return r.err }

// Ladder is a fixed, ordered list of RPC endpoints tried one at a time.
type Ladder struct {
	endpoints []Endpoint
}

func NewLadder(urls []string) *Ladder {
	eps := make([]Endpoint, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		eps = append(eps, Endpoint{URL: u, Index: len(eps)})
	}
	return &Ladder{endpoints: eps}
}

func (l *Ladder) Endpoints() []Endpoint {
	return append([]Endpoint(nil), l.endpoints...)
}

func (l *Ladder) Len() int {
	return len(l.endpoints)
}

// Walk calls fn for each endpoint in order and returns the first success.
// Intermediate failures are logged only. When every endpoint fails the
// error carries the last endpoint's message.
func Walk[T any](ctx context.Context, l *Ladder, fn func(ctx context.Context, ep Endpoint) (T, error)) (T, Endpoint, error) {
	var zero T
	if l == nil || len(l.endpoints) == 0 {
		return zero, Endpoint{}, apperrors.NewConfiguration("no rpc endpoints configured")
	}

	var lastErr error
	for _, ep := range l.endpoints {
		if err := ctx.Err(); err != nil {
			return zero, ep, apperrors.NewTransport(err)
		}
		v, err := fn(ctx, ep)
		if err == nil {
			return v, ep, nil
		}
		lastErr = ep.redact(err)
		metrics.RPCFailures.WithLabelValues(strconv.Itoa(ep.Index)).Inc()
		logger.Warn("rpc endpoint failed", "endpoint", ep.Host(), "index", ep.Index, "error", lastErr)
	}
	return zero, l.endpoints[len(l.endpoints)-1], apperrors.NewTransport(lastErr)
}
