package flock

import (
	"fmt"
	"os"
)

// TemporaryLock is a fail-fast exclusive lock whose file is removed again on
// Release. It suits single-instance guards and scratch coordination files
// that should not outlive the holder.
type TemporaryLock struct {
	base *FileLock
}

// NewTemporaryLock creates a lock on path that truncates on acquire, fails
// immediately when contended and deletes the file on release.
func NewTemporaryLock(path string) *TemporaryLock {
	return &TemporaryLock{base: NewFileLock(path, LockConfig{
		OpenFlag:       os.O_CREATE | os.O_RDWR | os.O_TRUNC,
		FailWhenLocked: true,
	})}
}

// Acquire obtains the lock or returns ErrAlreadyLocked when another holder
// has it.
func (t *TemporaryLock) Acquire() (*os.File, error) {
	return t.base.Acquire()
}

// Release drops the lock and removes the lock file. The removal happens
// after the unlock, so a racing acquirer may briefly see the file vanish
// under its open handle; advisory locking on the handle is unaffected.
func (t *TemporaryLock) Release() error {
	held := t.base.Locked()
	if err := t.base.Release(); err != nil {
		return err
	}
	if !held {
		return nil
	}
	if err := os.Remove(t.base.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrLockFailed, t.base.Path(), err)
	}
	return nil
}

// Locked reports whether this lock currently holds the file.
func (t *TemporaryLock) Locked() bool { return t.base.Locked() }

// Path returns the lock file path.
func (t *TemporaryLock) Path() string { return t.base.Path() }
