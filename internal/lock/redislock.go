// Package lock serializes worker jobs across instances: the rule sweep and
// the pricing cache warm-up must each run on one worker at a time.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a Redis-backed mutual exclusion lock. Acquisition polls with a
// fixed backoff until the context is cancelled; release only deletes the key
// when the holder's token still matches, so an expired lock taken over by
// another worker is never released from here.
type Locker struct {
	Client *redis.Client
	Retry  time.Duration
}

// WithLock runs fn while holding the lock named by key. The lock is released
// when fn returns, error or not; the ttl bounds how long a crashed holder can
// block the next worker.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	token := uuid.NewString()

	for {
		acquired, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			defer l.release(key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// releaseScript deletes the key only when its value is still our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

func (l Locker) release(key, token string) {
	// The job's context may already be done; the release still has to go out.
	_ = l.Client.Eval(context.Background(), releaseScript, []string{key}, token).Err()
}
