// Package ratelimit implements per-webhook token bucket rate limiting.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter is a keyed token bucket limiter. Rates are expressed in
// requests per minute; a rate of zero or less means unlimited.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLimiter creates an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether one request for key fits within ratePerMinute.
// Buckets refill continuously and hold at most ratePerMinute tokens.
func (l *Limiter) Allow(key string, ratePerMinute int) bool {
	if ratePerMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(ratePerMinute), lastRefill: now}
		l.buckets[key] = b
	}

	// Refill proportionally to elapsed time, capped at the full rate.
	elapsed := now.Sub(b.lastRefill).Minutes()
	b.tokens += elapsed * float64(ratePerMinute)
	if b.tokens > float64(ratePerMinute) {
		b.tokens = float64(ratePerMinute)
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Reset drops the bucket for key, restoring its full burst capacity.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
