package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a resource.
	DefaultLockTTL = 15 * time.Second

	lockRetryInterval = 25 * time.Millisecond
)

// ErrLockTimeout is returned when the lock could not be acquired before
// the context ended.
var ErrLockTimeout = errors.New("timed out waiting for resource lock")

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ResourceLocker serializes writers of one resource across processes with
// a SET NX lease.
type ResourceLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewResourceLocker creates a Redis-backed locker. A non-positive ttl uses
// DefaultLockTTL.
func NewResourceLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *ResourceLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceLocker{client: client, ttl: ttl, logger: logger}
}

// Lock polls until the lease is acquired or ctx is done.
func (l *ResourceLocker) Lock(ctx context.Context, resourceID uuid.UUID) (func(), error) {
	key := lockKey(resourceID)
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *ResourceLocker) unlocker(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release resource lock", "key", key, "error", err)
		}
	}
}

func lockKey(resourceID uuid.UUID) string {
	return "coachbook:lock:resource:" + resourceID.String()
}
