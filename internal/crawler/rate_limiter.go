package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between requests per host.
// It carries the Crawl-delay a site asks for; the jittered pace between
// nodes is handled by Pacer.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	delays   map[string]time.Duration
	mu       sync.RWMutex
	delay    time.Duration
}

// NewRateLimiter creates a limiter. A zero default delay means hosts
// without an explicit delay are not limited.
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delays:   make(map[string]time.Duration),
		delay:    defaultDelay,
	}
}

// Wait waits for permission to proceed with a request to the given URL
func (r *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	return r.getLimiter(parsedURL.Host).Wait(ctx)
}

// SetDomainDelay sets the interval for a host. Non-positive delays fall
// back to the default.
func (r *RateLimiter) SetDomainDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if delay <= 0 {
		delay = r.delay
	}

	r.delays[host] = delay
	r.limiters[host] = newLimiter(delay)
}

// DomainDelay returns the interval applied to host.
func (r *RateLimiter) DomainDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.delays[host]; ok {
		return d
	}
	return r.delay
}

// getLimiter gets or creates a rate limiter for a host
func (r *RateLimiter) getLimiter(host string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[host]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.limiters[host]; exists {
		return limiter
	}

	limiter = newLimiter(r.delay)
	r.limiters[host] = limiter
	return limiter
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
