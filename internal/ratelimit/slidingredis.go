// Package ratelimit throttles the public calculation endpoints per client.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys away from the pricing cache and lock
// keys sharing the same Redis.
const DefaultPrefix = "pricing:rl:"

// Limiter is a sliding-window limiter over one Redis sorted set per key.
// Every request becomes a member scored by its arrival time; members older
// than the window are dropped before counting.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records one request under key and reports whether it fits the limit,
// the remaining quota, and when the window resets. A nil client or a
// non-positive limit disables limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	now := time.Now()
	reset = now.Add(window)
	bucket := prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", cutoff)
	pipe.ZAdd(ctx, bucket, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	current := int(count.Val())
	remaining = max - current
	if remaining < 0 {
		remaining = 0
	}
	return current <= max, remaining, reset, nil
}
