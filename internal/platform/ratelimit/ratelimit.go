// Package ratelimit provides fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed bool
	// RetryAfter is how long until the current window ends. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter keeps counters in process. Suitable for a single instance.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

// NewMemoryLimiter allows limit hits per key per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow counts a hit for key.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.sweepLocked(now)
		b = &bucket{start: now}
		l.buckets[key] = b
	}
	b.count++
	if b.count > l.limit {
		return Result{Allowed: false, RetryAfter: b.start.Add(l.window).Sub(now)}, nil
	}
	return Result{Allowed: true}, nil
}

// sweepLocked drops expired buckets so idle keys do not accumulate.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, k)
		}
	}
}
