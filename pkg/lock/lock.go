// Package lock provides per-key mutual exclusion so deploy and sweep never
// run concurrently for the same user.
package lock

import (
	"context"
	"errors"
)

// ErrNotHeld is returned when unlocking a key that is not held.
var ErrNotHeld = errors.New("lock not held")

// Locker serializes lifecycle operations per key. Locks are scoped to one
// key (a user id); unrelated keys never contend.
type Locker interface {
	// Lock blocks until the key is acquired or the context is done.
	Lock(ctx context.Context, key string) error

	// TryLock acquires the key without blocking and reports success.
	TryLock(ctx context.Context, key string) (bool, error)

	// Unlock releases the key.
	Unlock(ctx context.Context, key string) error
}
