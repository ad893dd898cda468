package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryInterval = 25 * time.Millisecond

// only the holder of the token may release
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`)

// Locker is a lease based mutex shared by every service instance. A lease
// expires on its own if the holder dies.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client: client,
	}
}

// TryLock waits up to wait for the lock and holds it for at most lease.
// ok is false when the wait elapsed without acquiring it.
func (l *Locker) TryLock(ctx context.Context, key string, wait, lease time.Duration) (unlock func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			return func(ctx context.Context) error {
				return l.release(ctx, key, token)
			}, true, nil
		}

		if time.Now().Add(lockRetryInterval).After(deadline) {
			return nil, false, nil
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, fmt.Errorf("context error: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	if err := releaseLockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	return nil
}
