package flock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LockConfig configures a FileLock. The zero value selects the defaults
// documented on each field.
type LockConfig struct {
	// OpenFlag is the os.OpenFile flag used when acquiring. When os.O_TRUNC
	// is present it is stripped and the truncate is deferred until after the
	// lock is held, so existing bytes are never destroyed underneath a
	// concurrent shared reader. Default os.O_CREATE|os.O_RDWR.
	OpenFlag int

	// Perm is the permission mode for newly created lock files. Default 0644.
	Perm os.FileMode

	// Timeout bounds how long Acquire keeps retrying a contended lock.
	// Default DefaultTimeout; zero means the default, not "no wait" (use
	// FailWhenLocked to fail fast).
	Timeout time.Duration

	// CheckInterval is the polling interval while waiting.
	// Default DefaultCheckInterval.
	CheckInterval time.Duration

	// FailWhenLocked makes Acquire return ErrAlreadyLocked on the first
	// contended attempt instead of waiting out the timeout.
	FailWhenLocked bool

	// Flags is the lock method passed to the backend.
	// Default LockExclusive|LockNonBlocking.
	Flags LockFlags

	// Locker is the backend used for the raw lock and unlock calls. Default
	// is the platform backend.
	Locker Locker
}

// FileLock is an advisory lock on a single filesystem path with built-in
// timeout handling. Construction performs no I/O: the file is opened by
// Acquire and closed by Release. A FileLock owns the handle it opens.
type FileLock struct {
	path     string
	openFlag int
	perm     os.FileMode
	truncate bool

	timeout        time.Duration
	checkInterval  time.Duration
	failWhenLocked bool
	flags          LockFlags
	locker         Locker

	mu sync.Mutex
	fh *os.File
}

// NewFileLock creates a FileLock for path. No file is opened until Acquire.
func NewFileLock(path string, cfg LockConfig) *FileLock {
	if cfg.OpenFlag == 0 {
		cfg.OpenFlag = os.O_CREATE | os.O_RDWR
	}
	if cfg.Perm == 0 {
		cfg.Perm = 0644
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.Flags == 0 {
		cfg.Flags = LockExclusive | LockNonBlocking
	}
	if cfg.Locker == nil {
		cfg.Locker = std
	}
	return &FileLock{
		path:           path,
		openFlag:       cfg.OpenFlag &^ os.O_TRUNC,
		perm:           cfg.Perm,
		truncate:       cfg.OpenFlag&os.O_TRUNC != 0,
		timeout:        cfg.Timeout,
		checkInterval:  cfg.CheckInterval,
		failWhenLocked: cfg.FailWhenLocked,
		flags:          cfg.Flags,
		locker:         cfg.Locker,
	}
}

// Acquire opens the file and obtains the OS lock, retrying on contention
// until the configured timeout elapses. While the lock is already held by
// this FileLock, Acquire returns the existing handle without touching the
// backend (idempotent re-entry; see ReentrantLock for counted nesting).
//
// Contention (ErrAlreadyLocked) is retried unless FailWhenLocked is set; any
// other backend failure closes the handle and is returned immediately since
// it signals a fault, not contention.
func (l *FileLock) Acquire() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fh != nil {
		return l.fh, nil
	}

	fh, err := os.OpenFile(l.path, l.openFlag, l.perm)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLockFailed, l.path, err)
	}

	var lastErr error
	timer := newRetryTimer(l.timeout, l.checkInterval)
	for timer.Next() {
		lastErr = l.locker.Lock(fh, l.flags)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, ErrAlreadyLocked) {
			fh.Close() //nolint:errcheck
			return nil, lastErr
		}
		if l.failWhenLocked {
			fh.Close() //nolint:errcheck
			return nil, lastErr
		}
	}
	if lastErr != nil {
		// Retry sequence exhausted: report the last contention error.
		fh.Close() //nolint:errcheck
		return nil, lastErr
	}

	if l.truncate {
		// Deferred truncate: only now that the lock is confirmed is it safe
		// to destroy the previous contents.
		if err := fh.Truncate(0); err != nil {
			l.locker.Unlock(fh) //nolint:errcheck
			fh.Close()          //nolint:errcheck
			return nil, fmt.Errorf("%w: truncate %s: %v", ErrLockFailed, l.path, err)
		}
		if _, err := fh.Seek(0, io.SeekStart); err != nil {
			l.locker.Unlock(fh) //nolint:errcheck
			fh.Close()          //nolint:errcheck
			return nil, fmt.Errorf("%w: seek %s: %v", ErrLockFailed, l.path, err)
		}
	}

	l.fh = fh
	return fh, nil
}

// Release drops the OS lock and closes the handle. Releasing a FileLock that
// is not held is a no-op.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fh == nil {
		return nil
	}
	if err := l.locker.Unlock(l.fh); err != nil {
		return err
	}
	err := l.fh.Close()
	l.fh = nil
	if err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrLockFailed, l.path, err)
	}
	return nil
}

// Locked reports whether this FileLock currently holds its lock.
func (l *FileLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fh != nil
}

// Handle returns the held file handle, or nil when the lock is not held.
func (l *FileLock) Handle() *os.File {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fh
}

// Path returns the filesystem path this lock coordinates on.
func (l *FileLock) Path() string { return l.path }
