package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically. KEYS[1] is the
// bucket hash; ARGV: capacity, refill per second, now (unix micros), ttl
// seconds. Returns {allowed, remaining_tokens_x1e6}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_seen')
local tokens = tonumber(state[1])
local last_seen = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  last_seen = now
end

local elapsed = (now - last_seen) / 1000000.0
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * refill)
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'last_seen', now)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens * 1000000)}
`)

// RedisLimiter shares one token bucket per key across instances.
type RedisLimiter struct {
	client       *redis.Client
	capacity     float64
	refillPerSec float64
	keyPrefix    string
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows ratePerMinute requests per key per minute, with the
// bucket state held in Redis.
func NewRedisLimiter(client *redis.Client, ratePerMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:       client,
		capacity:     float64(ratePerMinute),
		refillPerSec: float64(ratePerMinute) / 60.0,
		keyPrefix:    "walletd:ratelimit:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	// TTL long enough for a fully drained bucket to refill twice over.
	ttl := int(2*l.capacity/l.refillPerSec) + 1
	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.keyPrefix + key},
		l.capacity, l.refillPerSec, time.Now().UnixMicro(), ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	tokens := float64(res[1]) / 1e6
	d := Decision{
		Limit:     int(l.capacity),
		Remaining: int(tokens),
		Allowed:   res[0] == 1,
	}
	if !d.Allowed {
		d.RetryAfter = retryAfter(1-tokens, l.refillPerSec)
	}
	return d, nil
}
