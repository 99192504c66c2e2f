//go:build !windows

package flock

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

func newPlatformLocker() Locker { return FlockLocker{} }

// FlockLocker implements Locker using flock(2). Locks attach to the open file
// description, so they are inherited across fork and dup, and two handles
// opened separately by the same process still conflict.
type FlockLocker struct{}

func (FlockLocker) Lock(f *os.File, flags LockFlags) error {
	how, err := flockHow(flags)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		return classifyPosix(err, f.Name())
	}
	return nil
}

func (FlockLocker) Unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("%w: flock unlock %s: %v", ErrLockFailed, f.Name(), err)
	}
	return nil
}

// LockfLocker implements Locker using POSIX fcntl record locks over the whole
// file. The semantics differ from flock(2): locks belong to the process
// rather than the open file description, do not conflict between descriptors
// of the same process, and are dropped when the process closes any descriptor
// for the file. It is selectable for callers that need fcntl semantics (for
// example NFSv3 interoperability).
type LockfLocker struct{}

func (LockfLocker) Lock(f *os.File, flags LockFlags) error {
	if err := checkPosixFlags(flags); err != nil {
		return err
	}
	lk := unix.Flock_t{Whence: io.SeekStart}
	switch {
	case flags&LockExclusive != 0:
		lk.Type = unix.F_WRLCK
	case flags&LockShared != 0:
		lk.Type = unix.F_RDLCK
	case flags&LockUnblock != 0:
		lk.Type = unix.F_UNLCK
	}
	cmd := unix.F_SETLKW
	if flags&LockNonBlocking != 0 {
		cmd = unix.F_SETLK
	}
	if err := unix.FcntlFlock(f.Fd(), cmd, &lk); err != nil {
		return classifyPosix(err, f.Name())
	}
	return nil
}

func (LockfLocker) Unlock(f *os.File) error {
	lk := unix.Flock_t{Type: unix.F_UNLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk); err != nil {
		return fmt.Errorf("%w: fcntl unlock %s: %v", ErrLockFailed, f.Name(), err)
	}
	return nil
}

func flockHow(flags LockFlags) (int, error) {
	if err := checkPosixFlags(flags); err != nil {
		return 0, err
	}
	var how int
	switch {
	case flags&LockExclusive != 0:
		how = unix.LOCK_EX
	case flags&LockShared != 0:
		how = unix.LOCK_SH
	case flags&LockUnblock != 0:
		how = unix.LOCK_UN
	}
	if flags&LockNonBlocking != 0 {
		how |= unix.LOCK_NB
	}
	return how, nil
}

// checkPosixFlags rejects a non-blocking request carrying neither the shared
// nor the exclusive intent. Such a request must never reach the OS.
func checkPosixFlags(flags LockFlags) error {
	if flags&LockNonBlocking != 0 && flags&(LockShared|LockExclusive) == 0 {
		return fmt.Errorf("%w: non-blocking mode requires the shared or exclusive flag", ErrLockFailed)
	}
	return nil
}

// classifyPosix maps an errno from a locking syscall into the package error
// taxonomy. EAGAIN and EACCES signal contention. ENOLCK (no lock manager,
// seen on network filesystems) is a hard failure, not a contention signal,
// and falls through to ErrLockFailed with everything else.
func classifyPosix(err error, name string) error {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) {
		return fmt.Errorf("%w: %s: %v", ErrAlreadyLocked, name, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrLockFailed, name, err)
}
