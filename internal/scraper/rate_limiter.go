package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per job site.
type RateLimiter struct {
	limiters map[string]*siteLimiter
	mu       sync.Mutex
}

type siteLimiter struct {
	limiter *rate.Limiter
	perMin  int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*siteLimiter),
	}
}

// Wait blocks until site may issue another request. requestsPerMinute <= 0
// disables limiting for the site. The first request of a bucket never waits.
func (rl *RateLimiter) Wait(ctx context.Context, site string, requestsPerMinute int) error {
	if requestsPerMinute <= 0 {
		return nil
	}
	if err := rl.getLimiter(site, requestsPerMinute).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", site, err)
	}
	return nil
}

// getLimiter gets or creates the bucket for site, replacing it when the
// configured rate changed.
func (rl *RateLimiter) getLimiter(site string, requestsPerMinute int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[site]; ok && l.perMin == requestsPerMinute {
		return l.limiter
	}

	every := time.Minute / time.Duration(requestsPerMinute)
	l := &siteLimiter{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		perMin:  requestsPerMinute,
	}
	rl.limiters[site] = l
	return l.limiter
}
