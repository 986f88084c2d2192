package scrape

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter enforces a minimum spacing between two scraper invocations
// targeting the same host. Workers block here; this plus the bounded
// pool is the whole backpressure story.
type hostLimiter struct {
	mu       sync.Mutex
	spacing  time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiter(spacing time.Duration) *hostLimiter {
	if spacing <= 0 {
		spacing = 2 * time.Second
	}
	return &hostLimiter{
		spacing:  spacing,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiter) wait(ctx context.Context, host string) error {
	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.spacing), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()
	return limiter.Wait(ctx)
}
