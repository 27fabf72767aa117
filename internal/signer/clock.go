package signer

import (
	"context"
	"time"

	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
)

// Clock supplies signing timestamps in unix seconds.
type Clock interface {
	Now(ctx context.Context) int64
}

// TimeSource reports the upstream server's clock.
type TimeSource interface {
	ServerTime(ctx context.Context) (int64, error)
}

type LocalClock struct{}

func (LocalClock) Now(context.Context) int64 {
	return time.Now().Unix()
}

// ServerClock prefers the upstream clock to avoid skew rejections and falls
// back to local time when the upstream call fails.
type ServerClock struct {
	source TimeSource
	now    func() time.Time
}

func NewServerClock(source TimeSource) *ServerClock {
	return &ServerClock{source: source, now: time.Now}
}

func (c *ServerClock) Now(ctx context.Context) int64 {
	if c.source != nil {
		ts, err := c.source.ServerTime(ctx)
		if err == nil && ts > 0 {
			return ts
		}
		metrics.ServerTimeFallbacks.Inc()
		if err != nil {
			logger.Warn("server time unavailable, using local clock", "error", err)
		}
	}
	return c.now().Unix()
}
