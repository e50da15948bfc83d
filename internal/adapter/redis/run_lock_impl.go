package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/product-image-updater/internal/repository"
)

const runLockKey = "product-image:updater:lock"

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLockImpl provides a concrete implementation for the RunLock interface using a Redis key.
type RunLockImpl struct {
	client *redis.Client
	key    string
}

// NewRunLock creates a new instance of RunLockImpl.
func NewRunLock(client *redis.Client) *RunLockImpl {
	return &RunLockImpl{client: client, key: runLockKey}
}

// Acquire takes the lock with SET NX, returning repository.ErrLockHeld when it is taken.
func (l *RunLockImpl) Acquire(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrLockHeld
	}
	return nil
}

// Release drops the lock if token still owns it.
func (l *RunLockImpl) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}
