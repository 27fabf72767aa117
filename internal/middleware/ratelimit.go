package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

// LimiterRegistry hands out one token bucket per caller.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	qps      rate.Limit
	burst    int
}

func NewLimiterRegistry(qps float64, burst int) *LimiterRegistry {
	if burst <= 0 {
		burst = 1
	}
	return &LimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		qps:      rate.Limit(qps),
		burst:    burst,
	}
}

func (r *LimiterRegistry) Get(caller string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[caller]
	if !ok {
		l = rate.NewLimiter(r.qps, r.burst)
		r.limiters[caller] = l
	}
	return l
}

// RateLimitMiddleware must run after AuthMiddleware so the caller is known.
func RateLimitMiddleware(reg *LimiterRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reg == nil || reg.qps <= 0 {
			c.Next()
			return
		}
		if !reg.Get(Caller(c)).Allow() {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
