package flock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	m, err := NewManager(filepath.Join(t.TempDir(), "locks"), ManagerConfig{
		Lock: LockConfig{
			Timeout:       100 * time.Millisecond,
			CheckInterval: 10 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	return m
}

func TestManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "locks")
	m, err := NewManager(dir, ManagerConfig{})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.DirExists(t, dir)
}

func TestManagerAcquireRelease(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Acquire("invoice", LockExclusive))
	assert.True(t, m.Held("invoice"))
	assert.FileExists(t, m.lockPath("invoice"))

	require.NoError(t, m.Release("invoice"))
	assert.False(t, m.Held("invoice"))
}

func TestManagerAcquireTwice(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Acquire("invoice", LockExclusive))
	defer m.Release("invoice")

	err := m.Acquire("invoice", LockExclusive)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestManagerTryAcquireContention(t *testing.T) {
	m1 := newTestManager(t)
	m2, err := NewManager(m1.dir, ManagerConfig{})
	require.NoError(t, err)

	require.NoError(t, m1.Acquire("shared-key", LockExclusive))
	defer m1.Release("shared-key")

	err = m2.TryAcquire("shared-key", LockExclusive)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestManagerSharedAcrossManagers(t *testing.T) {
	m1 := newTestManager(t)
	m2, err := NewManager(m1.dir, ManagerConfig{})
	require.NoError(t, err)

	require.NoError(t, m1.Acquire("readers", LockShared))
	defer m1.Release("readers")

	require.NoError(t, m2.TryAcquire("readers", LockShared))
	m2.Release("readers")
}

func TestManagerMultipleKeys(t *testing.T) {
	m := newTestManager(t)

	keys := []string{"alpha", "beta", "gamma"}
	for _, key := range keys {
		require.NoError(t, m.Acquire(key, LockExclusive))
	}
	for _, key := range keys {
		assert.True(t, m.Held(key))
	}

	require.NoError(t, m.ReleaseAll())
	for _, key := range keys {
		assert.False(t, m.Held(key))
	}
}

func TestManagerReleaseNotHeld(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.Release("nothing"))
}

func TestManagerInvalidKey(t *testing.T) {
	m := newTestManager(t)

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		err := m.Acquire(key, LockExclusive)
		assert.ErrorIs(t, err, ErrLockFailed, "key %q", key)
	}
}

func TestManagerIdleCacheReuse(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Acquire("hot", LockExclusive))
	require.NoError(t, m.Release("hot"))

	cached, ok := m.idle.Get("hot")
	require.True(t, ok)

	// Re-acquiring the key revives the cached lock
	require.NoError(t, m.Acquire("hot", LockExclusive))
	assert.Same(t, cached, m.held["hot"])
	assert.Zero(t, m.idle.Len())

	m.Release("hot")
}

func TestManagerIdleCacheEviction(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "locks"), ManagerConfig{CacheSize: 2})
	require.NoError(t, err)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, m.Acquire(key, LockExclusive))
		require.NoError(t, m.Release(key))
	}

	// Oldest entry dropped once the cache is over capacity
	assert.Equal(t, 2, m.idle.Len())
	_, ok := m.idle.Get("a")
	assert.False(t, ok)
}

func BenchmarkManagerAcquireRelease(b *testing.B) {
	m, _ := NewManager(filepath.Join(b.TempDir(), "locks"), ManagerConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Acquire("bench", LockExclusive)
		_ = m.Release("bench")
	}
}
