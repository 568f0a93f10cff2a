package http

import (
	"golang.org/x/time/rate"

	"github.com/vovakirdan/presence-hub/internal/config"
)

// rateLimiter throttles inbound events of one connection.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if cfg.EventsPerSecond <= 0 {
		return &rateLimiter{}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), burst)}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	return r.limiter.Allow()
}
