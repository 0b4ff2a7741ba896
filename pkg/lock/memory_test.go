package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/lock"
)

func TestKeyedMutex_LockUnlock(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()
	ctx := context.Background()

	require.NoError(t, m.Lock(ctx, "user-1"))
	require.NoError(t, m.Unlock(ctx, "user-1"))
}

func TestKeyedMutex_TryLockWhileHeld(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()
	ctx := context.Background()

	require.NoError(t, m.Lock(ctx, "user-1"))

	acquired, err := m.TryLock(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, m.Unlock(ctx, "user-1"))

	acquired, err = m.TryLock(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, m.Unlock(ctx, "user-1"))
}

func TestKeyedMutex_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()
	ctx := context.Background()

	require.NoError(t, m.Lock(ctx, "user-1"))

	acquired, err := m.TryLock(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, acquired, "a held lock on one user must not block another")
}

func TestKeyedMutex_LockRespectsContext(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()

	require.NoError(t, m.Lock(context.Background(), "user-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Lock(ctx, "user-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyedMutex_UnlockWithoutLock(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()

	err := m.Unlock(context.Background(), "user-1")
	require.ErrorIs(t, err, lock.ErrNotHeld)
}

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	t.Parallel()

	m := lock.NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		holders int
		maxSeen int
		mu      sync.Mutex
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, m.Lock(ctx, "user-1"))

			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()

			assert.NoError(t, m.Unlock(ctx, "user-1"))
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one goroutine may hold the key at a time")
}
