package dispatch

import (
	"context"
	"net/http"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
)

var DefaultBlockedStatuses = []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable}

type Config struct {
	// Statuses on the direct route that trigger the proxied route.
	BlockedStatuses []int
}

// Router tries the direct route first and fails over to the proxied route
// when the direct attempt errors or returns a blocked status. Every Dispatch
// starts over from direct; no state is kept between calls.
type Router struct {
	direct  Route
	proxied Route
	blocked map[int]struct{}
}

// NewRouter builds a router. proxied may be nil, in which case the direct
// outcome is always final.
func NewRouter(direct Route, proxied Route, cfg Config) *Router {
	statuses := cfg.BlockedStatuses
	if len(statuses) == 0 {
		statuses = DefaultBlockedStatuses
	}
	blocked := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		blocked[s] = struct{}{}
	}
	return &Router{direct: direct, proxied: proxied, blocked: blocked}
}

func (r *Router) HasProxy() bool {
	return r.proxied != nil
}

// Dispatch returns whatever status the final attempt produced. It returns a
// transport error only when the final attempt itself failed.
func (r *Router) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	resp, err := r.direct.Do(ctx, req)
	switch {
	case err != nil:
		metrics.DispatchAttempts.WithLabelValues(r.direct.Name(), "error").Inc()
		if r.proxied == nil {
			return nil, apperrors.NewTransport(err)
		}
		logger.Warn("direct dispatch failed, retrying via proxy",
			"method", req.Method, "url", req.URL, "error", err)
	case r.isBlocked(resp.StatusCode):
		metrics.DispatchAttempts.WithLabelValues(r.direct.Name(), "blocked").Inc()
		if r.proxied == nil {
			return resp, nil
		}
		logger.Info("direct dispatch blocked, retrying via proxy",
			"method", req.Method, "url", req.URL, "status", resp.StatusCode)
	default:
		metrics.DispatchAttempts.WithLabelValues(r.direct.Name(), "ok").Inc()
		return resp, nil
	}

	resp, err = r.proxied.Do(ctx, req)
	if err != nil {
		metrics.DispatchAttempts.WithLabelValues(r.proxied.Name(), "error").Inc()
		return nil, apperrors.NewTransport(err)
	}
	metrics.DispatchAttempts.WithLabelValues(r.proxied.Name(), "ok").Inc()
	return resp, nil
}

func (r *Router) isBlocked(status int) bool {
	_, ok := r.blocked[status]
	return ok
}
