package flock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporaryLockRemovesFile(t *testing.T) {
	tempDir := t.TempDir()
	lockPath := filepath.Join(tempDir, "temp.lock")

	lock := NewTemporaryLock(lockPath)
	_, err := lock.Acquire()
	require.NoError(t, err)
	assert.FileExists(t, lockPath)

	require.NoError(t, lock.Release())
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestTemporaryLockFailsFast(t *testing.T) {
	tempDir := t.TempDir()
	lockPath := filepath.Join(tempDir, "guard.lock")

	lock1 := NewTemporaryLock(lockPath)
	_, err := lock1.Acquire()
	require.NoError(t, err)
	defer lock1.Release()

	lock2 := NewTemporaryLock(lockPath)
	_, err = lock2.Acquire()
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestTemporaryLockReleaseNotHeld(t *testing.T) {
	tempDir := t.TempDir()
	lockPath := filepath.Join(tempDir, "idle.lock")

	lock := NewTemporaryLock(lockPath)
	assert.NoError(t, lock.Release())

	// Releasing without holding must not delete a file someone else made
	require.NoError(t, os.WriteFile(lockPath, []byte("x"), 0644))
	assert.NoError(t, lock.Release())
	assert.FileExists(t, lockPath)
}

func TestTemporaryLockReacquire(t *testing.T) {
	tempDir := t.TempDir()
	lockPath := filepath.Join(tempDir, "cycle.lock")

	lock := NewTemporaryLock(lockPath)
	for i := 0; i < 3; i++ {
		_, err := lock.Acquire()
		require.NoError(t, err)
		require.NoError(t, lock.Release())
	}
	_, err := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}
