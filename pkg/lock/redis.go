package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultLeaseTTL   = 2 * time.Minute
	lockRetryInterval = 200 * time.Millisecond
)

// releaseScript deletes the lease only if this instance still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker is a lease-based lock for multi-instance deployments. The
// lease TTL bounds how long a crashed holder can block a user; a live holder
// is expected to finish well within it (deploy worst case is under a minute
// of backoff plus three 30s calls).
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLocker creates a redis-backed locker. A zero TTL falls back to 2m.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}

	return &RedisLocker{
		client: client,
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

func (l *RedisLocker) key(key string) string {
	return "mailbridge:lock:" + key
}

// Lock polls SetNX until the lease is acquired or the context is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) error {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.TryLock(ctx, key)
		if err != nil {
			return err
		}

		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryLock attempts to acquire the lease without blocking.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, l.key(key), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}

	if acquired {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}

	return acquired, nil
}

// Unlock releases the lease if this instance still owns it.
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return ErrNotHeld
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key(key)}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock for %s: %w", key, err)
	}

	if deleted == 0 {
		return ErrNotHeld
	}

	return nil
}
