package flock

import "os"

// Locker performs a single, immediate lock or unlock call against an open
// file handle, translating OS error codes into the package error taxonomy:
// contention becomes ErrAlreadyLocked, everything else ErrLockFailed.
//
// Both methods are safe to call with the handle positioned at any file
// offset; implementations use explicit-offset locking calls and never move
// the handle's seek position.
type Locker interface {
	// Lock places the lock described by flags on f.
	Lock(f *os.File, flags LockFlags) error

	// Unlock releases the lock held on f.
	Unlock(f *os.File) error
}

// std is the process default backend, used by the package-level Lock and
// Unlock functions and by any FileLock constructed without an explicit
// Locker. Tests and callers that need a different backend inject one through
// LockConfig instead of mutating process-wide state.
var std Locker = newPlatformLocker()

// DefaultLocker returns a new instance of the platform's default locking
// backend: flock(2) on POSIX systems, the record-locking API (with a
// range-lock fallback for shared locks) on Windows.
func DefaultLocker() Locker { return newPlatformLocker() }

// Lock places the lock described by flags on a caller-owned file handle.
// The handle stays owned by the caller: this package never closes it, only
// the OS lock state is managed.
func Lock(f *os.File, flags LockFlags) error { return std.Lock(f, flags) }

// Unlock releases the lock held on a caller-owned file handle.
func Unlock(f *os.File) error { return std.Unlock(f) }
