// Package ratelimit provides a process-local request limiter. State is owned
// by the limiter instance and injected where needed; counts are not shared
// across instances, which is accepted staleness for the API tier.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by an arbitrary string (client IP,
// org ID). The zero number of requests per window means unlimited.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counts   map[string]int
	windowAt time.Time
	now      func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Allow reports whether the caller identified by key may proceed, counting
// the request against the current window.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowAt) >= l.window {
		l.counts = make(map[string]int)
		l.windowAt = now
	}

	if l.counts[key] >= l.limit {
		return false
	}
	l.counts[key]++
	return true
}
