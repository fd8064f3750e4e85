// Package ratelimit enforces per-key request rates with token buckets.
// Capacity equals the per-minute rate; refill is uniform.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Limit is the bucket capacity, reported in X-RateLimit-Limit.
	Limit int
	// Remaining is whole tokens left after this request.
	Remaining int
	// RetryAfter is how long until one token refills; zero when allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a key may make one more request now.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// retryAfter is the wait for `needed` tokens at `refillPerSec`.
func retryAfter(needed, refillPerSec float64) time.Duration {
	if refillPerSec <= 0 {
		return time.Minute
	}
	return time.Duration(needed / refillPerSec * float64(time.Second))
}
