package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

const lockPrefix = "lock:"

// Locker guards a critical section identified by key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ProfessionalKey scopes booking writes for one professional.
func ProfessionalKey(professionalID uuid.UUID) string {
	return "professional:" + professionalID.String()
}

// JobKey scopes a periodic worker job.
func JobKey(name string) string {
	return "job:" + name
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type tokenLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by one Redis key per lock name.
// fn runs with a context bounded by ttl so the work cannot outlive the lock.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &tokenLocker{client: client, ttl: ttl}
}

func (l *tokenLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	held := lockPrefix + key

	token, err := l.acquire(ctx, held)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	defer l.release(context.WithoutCancel(ctx), held, token)

	bounded, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(bounded)
}

func (l *tokenLocker) acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockNotAcquired
	}
	return token, nil
}

// release is best effort; an unreleased lock expires after ttl.
func (l *tokenLocker) release(ctx context.Context, key, token string) {
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
