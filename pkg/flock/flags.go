// Package flock provides cross-platform advisory file locking with built-in
// timeout handling, plus higher-level primitives built on top of it: a
// reentrant lock, a temporary lock, a cross-process bounded semaphore, and a
// keyed lock manager.
//
// Locks are advisory: only other processes that also use the locking API will
// observe them. On POSIX systems the default backend is flock(2); on Windows
// it is the legacy record-locking API with a LockFileEx fallback for shared
// locks.
package flock

// LockFlags describes a lock request passed to a Locker backend.
type LockFlags int

const (
	// LockExclusive requests an exclusive (write) lock. Only one holder may
	// hold an exclusive lock, and no shared holders can coexist with it.
	LockExclusive LockFlags = 1 << iota
	// LockShared requests a shared (read) lock. Multiple shared holders can
	// coexist, but all of them exclude an exclusive holder.
	LockShared
	// LockNonBlocking makes the backend fail immediately instead of waiting
	// for a conflicting lock to be released. On POSIX systems a non-blocking
	// request must also carry LockExclusive or LockShared.
	LockNonBlocking
	// LockUnblock releases an existing lock. Callers normally use Unlock
	// rather than passing this flag to Lock.
	LockUnblock
)
