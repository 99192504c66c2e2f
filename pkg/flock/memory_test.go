package flock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerAcquireRelease(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("key", LockExclusive))
	require.NoError(t, m.Release("key"))
}

func TestMemoryManagerTryAcquireContention(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("key", LockExclusive))
	defer m.Release("key")

	err := m.TryAcquire("key", LockExclusive)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestMemoryManagerSharedReaders(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.TryAcquire("key", LockShared))
	require.NoError(t, m.TryAcquire("key", LockShared))

	// A writer cannot get in while readers hold the key
	err := m.TryAcquire("key", LockExclusive)
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	m.Release("key")
	m.Release("key")
}

func TestMemoryManagerSharedHoldersReleaseOneByOne(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("key", LockShared))
	require.NoError(t, m.Acquire("key", LockShared))

	// One release drops one reader, not both
	require.NoError(t, m.Release("key"))
	err := m.TryAcquire("key", LockExclusive)
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	// The second release frees the key for a writer
	require.NoError(t, m.Release("key"))
	require.NoError(t, m.TryAcquire("key", LockExclusive))
	require.NoError(t, m.Release("key"))
}

func TestMemoryManagerReleaseNotHeld(t *testing.T) {
	m := NewMemoryManager()
	assert.NoError(t, m.Release("missing"))
}

func TestMemoryManagerReleaseAll(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("a", LockExclusive))
	require.NoError(t, m.Acquire("b", LockShared))
	require.NoError(t, m.Acquire("b", LockShared))

	require.NoError(t, m.ReleaseAll())

	// Everything free again
	require.NoError(t, m.TryAcquire("a", LockExclusive))
	require.NoError(t, m.TryAcquire("b", LockExclusive))
	m.ReleaseAll()
}

func TestMemoryManagerEntriesCleaned(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("key", LockExclusive))
	require.NoError(t, m.Release("key"))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.entries)
}

func TestMemoryManagerBlockingHandoff(t *testing.T) {
	m := NewMemoryManager()

	require.NoError(t, m.Acquire("key", LockExclusive))

	acquired := make(chan struct{})
	go func() {
		_ = m.Acquire("key", LockExclusive) //nolint:errcheck
		close(acquired)
	}()

	// The waiter gets the key once it is released
	require.NoError(t, m.Release("key"))
	<-acquired
	m.Release("key")
}

func TestMemoryManagerConcurrentCounter(t *testing.T) {
	m := NewMemoryManager()

	const numWorkers = 20
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Acquire("counter", LockExclusive))
			counter++
			require.NoError(t, m.Release("counter"))
		}()
	}

	wg.Wait()
	assert.Equal(t, numWorkers, counter)
}
