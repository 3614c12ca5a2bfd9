package relay

import (
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter keeps one token bucket per target host.
type hostLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newHostLimiter(limit rate.Limit, burst int) *hostLimiter {
	return &hostLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request to host may proceed now.
func (h *hostLimiter) Allow(host string) bool {
	h.mu.Lock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	h.mu.Unlock()
	return l.Allow()
}
