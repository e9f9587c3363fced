package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLockFailed = errors.New("failed to acquire distributed lock")

// DistributedLock is a Redis SetNX lock with an owner token. It is used
// to serialize webhook confirmations on the same order id so concurrent
// retries don't all pile onto the database row; the conditional status
// update in the store remains the authoritative guard either way.
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts to take the lock without blocking. SetNX succeeds only
// when the key does not exist; the expiration prevents a crashed holder
// from wedging the key forever.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock blocks until the lock is acquired, retrying up to maxRetries.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock. The Lua script checks the owner token before
// deleting so an expired holder cannot release a lock someone else now
// owns.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewConfirmLock creates the per-order confirmation lock. Keyed by the
// external order id: two deliveries of the same webhook serialize, while
// confirmations of different orders stay concurrent.
func NewConfirmLock(client *redis.Client, externalID string) *DistributedLock {
	key := fmt.Sprintf("ledger:confirm:lock:%s", externalID)
	return NewDistributedLock(client, key, externalID, 30*time.Second)
}
