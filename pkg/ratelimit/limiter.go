package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until a request to host is allowed or ctx is done
	Wait(ctx context.Context, host string) error
}

// HostLimiter keeps an independent token bucket for every host
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter allowing rps requests per second to each
// host with the given burst. rps <= 0 means unlimited.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the bucket for host has a token
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}

// Allow consumes a token for host if one is available
func (h *HostLimiter) Allow(host string) bool {
	return h.get(host).Allow()
}

// Reset forgets every host bucket
func (h *HostLimiter) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limiters = make(map[string]*rate.Limiter)
}

func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Unlimited returns a limiter that never blocks
func Unlimited() *HostLimiter {
	return NewHostLimiter(0, 1)
}
