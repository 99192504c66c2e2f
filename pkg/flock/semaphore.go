package flock

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

// SemaphoreConfig configures a BoundedSemaphore. The zero value selects the
// defaults documented on each field.
type SemaphoreConfig struct {
	// Directory holds the slot files. Default os.TempDir().
	Directory string

	// Pattern formats slot file names from the semaphore name and the slot
	// index. Default "%s.%02d.lock".
	Pattern string

	// Timeout bounds how long Acquire keeps sweeping for a free slot.
	// Default DefaultTimeout.
	Timeout time.Duration

	// CheckInterval is the delay between sweeps. Default DefaultCheckInterval.
	CheckInterval time.Duration

	// FailWhenLocked makes Acquire return ErrAlreadyLocked when no slot is
	// free instead of reporting "no slot" with a nil lock. Default true via
	// DefaultSemaphoreConfig; note that the zero value of this struct keeps
	// it false.
	FailWhenLocked bool

	// RandomOrder sweeps the slots in a random order instead of index order.
	// Randomizing spreads contention across slots instead of piling every
	// waiter onto slot zero.
	RandomOrder bool
}

// DefaultSemaphoreConfig returns the standard semaphore configuration, which
// fails with ErrAlreadyLocked when every slot is taken.
func DefaultSemaphoreConfig() SemaphoreConfig {
	return SemaphoreConfig{FailWhenLocked: true}
}

// BoundedSemaphore limits concurrent holders across processes to a fixed
// maximum by competing for one of N slot files. Each instance holds at most
// one slot.
type BoundedSemaphore struct {
	maximum int
	name    string
	dir     string
	pattern string

	timeout        time.Duration
	checkInterval  time.Duration
	failWhenLocked bool
	randomOrder    bool

	current *FileLock
}

// NewBoundedSemaphore creates a semaphore named name with the given number
// of slots. Instances in different processes coordinate by using the same
// name, directory and maximum.
//
// Start from DefaultSemaphoreConfig rather than a zero SemaphoreConfig: the
// standard behavior when every slot is taken is ErrAlreadyLocked, and only
// DefaultSemaphoreConfig sets FailWhenLocked accordingly.
func NewBoundedSemaphore(maximum int, name string, cfg SemaphoreConfig) *BoundedSemaphore {
	if cfg.Directory == "" {
		cfg.Directory = os.TempDir()
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "%s.%02d.lock"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	return &BoundedSemaphore{
		maximum:        maximum,
		name:           name,
		dir:            cfg.Directory,
		pattern:        cfg.Pattern,
		timeout:        cfg.Timeout,
		checkInterval:  cfg.CheckInterval,
		failWhenLocked: cfg.FailWhenLocked,
		randomOrder:    cfg.RandomOrder,
	}
}

// NewNamedBoundedSemaphore is NewBoundedSemaphore with a randomized name
// when name is empty. A random name yields a semaphore private to the
// processes that share the generated string.
func NewNamedBoundedSemaphore(maximum int, name string, cfg SemaphoreConfig) *BoundedSemaphore {
	if name == "" {
		name = fmt.Sprintf("bounded_semaphore.%d", rand.IntN(1000000))
	}
	return NewBoundedSemaphore(maximum, name, cfg)
}

// Filenames returns the slot file paths in index order.
func (s *BoundedSemaphore) Filenames() []string {
	names := make([]string, s.maximum)
	for i := range names {
		names[i] = filepath.Join(s.dir, fmt.Sprintf(s.pattern, s.name, i))
	}
	return names
}

// RandomFilenames returns the slot file paths in a random order; see
// SemaphoreConfig.RandomOrder.
func (s *BoundedSemaphore) RandomFilenames() []string {
	names := s.Filenames()
	rand.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	return names
}

// Acquire obtains one free slot, sweeping all slots per attempt until the
// timeout elapses. When every slot stays taken the result depends on
// FailWhenLocked: true returns ErrAlreadyLocked, false returns (nil, nil) so
// callers can treat "no slot" as a non-error outcome.
func (s *BoundedSemaphore) Acquire() (*FileLock, error) {
	if s.current != nil {
		return nil, fmt.Errorf("%w: semaphore slot already held", ErrLockFailed)
	}

	timer := newRetryTimer(s.timeout, s.checkInterval)
	for timer.Next() {
		lock, err := s.trySlots()
		if err != nil {
			return nil, err
		}
		if lock != nil {
			s.current = lock
			return lock, nil
		}
	}
	if s.failWhenLocked {
		return nil, fmt.Errorf("%w: no semaphore slot available", ErrAlreadyLocked)
	}
	return nil, nil
}

// trySlots attempts every slot once and returns the first lock acquired. Only
// contention moves the sweep to the next slot; any other failure aborts the
// sweep so the caller does not spend the timeout retrying a broken slot.
func (s *BoundedSemaphore) trySlots() (*FileLock, error) {
	names := s.Filenames()
	if s.randomOrder {
		names = s.RandomFilenames()
	}
	for _, name := range names {
		lock := NewFileLock(name, LockConfig{FailWhenLocked: true})
		if _, err := lock.Acquire(); err == nil {
			return lock, nil
		} else if !errors.Is(err, ErrAlreadyLocked) {
			return nil, err
		}
	}
	return nil, nil
}

// Release frees the held slot. Releasing without a held slot is a no-op.
func (s *BoundedSemaphore) Release() error {
	if s.current == nil {
		return nil
	}
	err := s.current.Release()
	s.current = nil
	return err
}

// Locked reports whether this instance currently holds a slot.
func (s *BoundedSemaphore) Locked() bool { return s.current != nil }
