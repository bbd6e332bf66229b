package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLockNotConfigured = errors.New("issuance lock has no redis client")
	ErrInvalidLock       = errors.New("issuance lock key and ttl are required")
)

// compareAndDelete removes the guard only when it still carries the caller's
// token, so an expired guard taken over by another request survives.
var compareAndDelete = redis.NewScript(`
local owner = redis.call("GET", KEYS[1])
if owner == false or owner ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// Locker holds short-lived issuance guards in redis.
type Locker struct {
	client redis.Cmdable
}

func NewLocker(client redis.Cmdable) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// TryLock takes the guard for key. ok is false when another holder has it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	if l == nil || l.client == nil {
		return "", false, ErrLockNotConfigured
	}
	if key == "" || ttl <= 0 {
		return "", false, ErrInvalidLock
	}

	token = uuid.NewString()
	err = l.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return token, true, nil
}

// Release drops the guard if token still owns it. Releasing a guard that has
// expired is not an error.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return compareAndDelete.Run(ctx, l.client, []string{key}, token).Err()
}
