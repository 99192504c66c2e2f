package flock

import (
	"fmt"
	"os"
	"sync"
)

// ReentrantLock wraps a FileLock with an acquisition count so a single owner
// can nest Acquire/Release pairs. Only the first Acquire touches the OS lock
// and only the matching final Release drops it.
//
// The counting makes nesting safe within one owner; it does not make the lock
// safe to share between goroutines that expect mutual exclusion from it.
type ReentrantLock struct {
	base *FileLock

	mu    sync.Mutex
	depth int
}

// NewReentrantLock creates a counted lock on path.
func NewReentrantLock(path string, cfg LockConfig) *ReentrantLock {
	return &ReentrantLock{base: NewFileLock(path, cfg)}
}

// Acquire obtains the underlying lock on the first call and afterwards only
// bumps the count, returning the same handle each time.
func (r *ReentrantLock) Acquire() (*os.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fh, err := r.base.Acquire()
	if err != nil {
		return nil, err
	}
	r.depth++
	return fh, nil
}

// Release undoes one Acquire. The OS lock is dropped only when the count
// returns to zero; releasing more times than acquired is an error.
func (r *ReentrantLock) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.depth == 0 {
		return fmt.Errorf("%w: released more times than acquired", ErrLockFailed)
	}
	r.depth--
	if r.depth > 0 {
		return nil
	}
	return r.base.Release()
}

// Locked reports whether the lock is currently held at any depth.
func (r *ReentrantLock) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth > 0
}

// Depth returns the current nesting count.
func (r *ReentrantLock) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}
