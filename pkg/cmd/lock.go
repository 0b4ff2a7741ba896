package cmd

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailbridge/mailbridge/pkg/lock"
)

const defaultLockTTL = 2 * time.Minute

// NewLocker picks the per-user locker. A Redis URL enables cross-process
// serialization between the API and the monitor; without one a single-process
// deployment falls back to the in-memory keyed mutex.
func NewLocker(redisURL string) (lock.Locker, redis.UniversalClient) {
	if redisURL == "" {
		return lock.NewKeyedMutex(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis url: %w", err))
	}

	client := redis.NewClient(opts)

	return lock.NewRedisLocker(client, defaultLockTTL), client
}
