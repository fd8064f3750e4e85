package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps one token bucket per key in process memory. Limits are
// therefore enforced per instance; use the Redis limiter when several
// instances must share a budget.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	capacity     float64
	refillPerSec float64
	now          func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter allows ratePerMinute requests per key per minute.
func NewMemoryLimiter(ratePerMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		buckets:      make(map[string]*bucket),
		capacity:     float64(ratePerMinute),
		refillPerSec: float64(ratePerMinute) / 60.0,
		now:          time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastSeen).Seconds()
		if elapsed > 0 {
			b.tokens += elapsed * l.refillPerSec
			if b.tokens > l.capacity {
				b.tokens = l.capacity
			}
		}
		b.lastSeen = now
	}

	d := Decision{Limit: int(l.capacity)}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
		d.Remaining = int(b.tokens)
		return d, nil
	}
	d.RetryAfter = retryAfter(1-b.tokens, l.refillPerSec)
	return d, nil
}

// Prune drops buckets idle longer than maxIdle. Call periodically to keep
// the map from growing with dead keys.
func (l *MemoryLimiter) Prune(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxIdle)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
