//go:build windows

package flock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

func newPlatformLocker() Locker { return NewRecordLocker() }

const (
	// rangeLockBytesHigh is the high 32 bits of the sentinel byte range
	// locked by RangeLocker. The range starts at offset 0 and deliberately
	// exceeds any realistic file size so that one range covers the whole
	// file regardless of its actual length.
	rangeLockBytesHigh = 0xFFFF0000

	// recordLockBytes is the fixed record length locked by RecordLocker.
	// The same length is used for lock and unlock so both calls always
	// describe the same region.
	recordLockBytes = 0x10000
)

// The legacy record-locking procs are not exposed by x/sys/windows, so they
// are resolved lazily from kernel32.
var (
	kernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procLockFile   = kernel32.NewProc("LockFile")
	procUnlockFile = kernel32.NewProc("UnlockFile")
)

// RangeLocker implements Locker using LockFileEx/UnlockFileEx over the
// sentinel byte range. The Overlapped descriptor is reused across calls on
// the same instance. Without LockExclusive the range is locked in shared
// mode, which is the Win32 default.
type RangeLocker struct {
	ol windows.Overlapped
}

// NewRangeLocker creates a RangeLocker.
func NewRangeLocker() *RangeLocker { return &RangeLocker{} }

func (l *RangeLocker) Lock(f *os.File, flags LockFlags) error {
	var mode uint32
	if flags&LockNonBlocking != 0 {
		mode |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	if flags&LockExclusive != 0 {
		mode |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	err := windows.LockFileEx(windows.Handle(f.Fd()), mode, 0, 0, rangeLockBytesHigh, &l.ol)
	if err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return fmt.Errorf("%w: %s: %v", ErrAlreadyLocked, f.Name(), err)
		}
		return fmt.Errorf("%w: LockFileEx %s: %v", ErrLockFailed, f.Name(), err)
	}
	return nil
}

// Unlock releases the sentinel range. Unlocking a range that is not locked
// is treated as success so that Unlock is idempotent.
func (l *RangeLocker) Unlock(f *os.File) error {
	err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 0, rangeLockBytesHigh, &l.ol)
	if err != nil && !errors.Is(err, windows.ERROR_NOT_LOCKED) {
		return fmt.Errorf("%w: UnlockFileEx %s: %v", ErrLockFailed, f.Name(), err)
	}
	return nil
}

// RecordLocker implements Locker using the legacy LockFile/UnlockFile record
// API, matching the semantics of the C runtime's _locking. The legacy API
// has no shared mode, so shared requests delegate entirely to an embedded
// RangeLocker. Blocking exclusive requests are emulated with the C runtime's
// retry schedule.
type RecordLocker struct {
	rl RangeLocker
}

// NewRecordLocker creates a RecordLocker.
func NewRecordLocker() *RecordLocker { return &RecordLocker{} }

// The C runtime retries a denied blocking lock once per second, ten times,
// before giving up.
const (
	recordLockRetries  = 10
	recordLockInterval = time.Second
)

func (l *RecordLocker) Lock(f *os.File, flags LockFlags) error {
	if flags&LockShared != 0 {
		// LockExclusive is not set on a shared request, so the embedded
		// range locker takes the range in shared mode.
		return l.rl.Lock(f, flags)
	}

	attempts := 1
	if flags&LockNonBlocking == 0 {
		attempts = recordLockRetries
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(recordLockInterval)
		}
		err = lockRecord(f)
		if err == nil {
			return nil
		}
		if !isRecordBusy(err) {
			return fmt.Errorf("%w: LockFile %s: %v", ErrLockFailed, f.Name(), err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrAlreadyLocked, f.Name(), err)
}

// Unlock releases the record lock. If the legacy call is denied, the lock
// may have been taken through the shared-mode delegation path, so the range
// unlock is attempted instead. This is a best guess: when the range was
// never locked either, both failures are reported together.
func (l *RecordLocker) Unlock(f *os.File) error {
	err := unlockRecord(f)
	if err == nil {
		return nil
	}
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		if rlErr := l.rl.Unlock(f); rlErr != nil {
			return fmt.Errorf("%w: record unlock %s denied (%v) and range unlock fallback failed (%v)",
				ErrLockFailed, f.Name(), err, rlErr)
		}
		return nil
	}
	return fmt.Errorf("%w: UnlockFile %s: %v", ErrLockFailed, f.Name(), err)
}

func lockRecord(f *os.File) error {
	ret, _, err := procLockFile.Call(f.Fd(), 0, 0, recordLockBytes, 0)
	if ret == 0 {
		return err
	}
	return nil
}

func unlockRecord(f *os.File) error {
	ret, _, err := procUnlockFile.Call(f.Fd(), 0, 0, recordLockBytes, 0)
	if ret == 0 {
		return err
	}
	return nil
}

// isRecordBusy reports whether err belongs to the resource-busy class that
// signals contention rather than a broken locking call.
func isRecordBusy(err error) bool {
	return errors.Is(err, windows.ERROR_LOCK_VIOLATION) ||
		errors.Is(err, windows.ERROR_ACCESS_DENIED) ||
		errors.Is(err, windows.ERROR_SHARING_VIOLATION)
}
