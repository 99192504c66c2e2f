package flock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyedLocker manages advisory locks addressed by key rather than by path,
// so callers coordinate on logical names without tracking lock files
// themselves.
type KeyedLocker interface {
	// Acquire obtains the lock for key, waiting on contention per the
	// implementation's policy.
	Acquire(key string, flags LockFlags) error
	// TryAcquire obtains the lock for key or fails immediately with
	// ErrAlreadyLocked.
	TryAcquire(key string, flags LockFlags) error
	// Release drops the lock for key. Releasing an unheld key is a no-op.
	Release(key string) error
	// ReleaseAll drops every lock held through this locker.
	ReleaseAll() error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// CacheSize bounds how many released FileLocks are kept around for
	// reuse before the least recently used is discarded. Default 128.
	CacheSize int

	// Lock is the template configuration applied to every lock file the
	// manager creates. Flags is overridden per Acquire call.
	Lock LockConfig
}

// Manager is a KeyedLocker that maps each key to a ".lock" file inside a
// directory. Released locks are parked in an LRU cache so re-acquiring a hot
// key reuses the FileLock instead of allocating a fresh one.
type Manager struct {
	dir  string
	cfg  LockConfig
	mu   sync.Mutex
	held map[string]*FileLock
	idle *lru.Cache[string, *FileLock]
}

var _ KeyedLocker = (*Manager)(nil)

// NewManager creates a Manager rooted at dir, creating the directory when
// missing.
func NewManager(dir string, cfg ManagerConfig) (*Manager, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 128
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create lock directory: %v", ErrLockFailed, err)
	}
	idle, err := lru.New[string, *FileLock](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	return &Manager{
		dir:  dir,
		cfg:  cfg.Lock,
		held: make(map[string]*FileLock),
		idle: idle,
	}, nil
}

// isValidKey rejects keys that would escape the lock directory or collide
// with path separators.
func isValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	for _, r := range key {
		switch r {
		case '/', '\\', 0:
			return false
		}
	}
	return true
}

func (m *Manager) lockPath(key string) string {
	return filepath.Join(m.dir, key+".lock")
}

// lockFor returns the FileLock for key, reviving an idle one when available.
// Caller holds m.mu.
func (m *Manager) lockFor(key string, flags LockFlags) *FileLock {
	if lock, ok := m.idle.Get(key); ok {
		m.idle.Remove(key)
		lock.flags = flags
		return lock
	}
	cfg := m.cfg
	cfg.Flags = flags
	return NewFileLock(m.lockPath(key), cfg)
}

func (m *Manager) acquire(key string, flags LockFlags, failFast bool) error {
	if !isValidKey(key) {
		return fmt.Errorf("%w: invalid lock key %q", ErrLockFailed, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return fmt.Errorf("%w: key %q held by this manager", ErrAlreadyLocked, key)
	}

	// The retry engine needs non-blocking backend attempts to honor the
	// timeout, so the polling flag is always set.
	lock := m.lockFor(key, flags|LockNonBlocking)
	lock.failWhenLocked = failFast
	if _, err := lock.Acquire(); err != nil {
		return err
	}
	m.held[key] = lock
	return nil
}

// Acquire obtains the lock for key, retrying contended attempts until the
// configured timeout elapses.
func (m *Manager) Acquire(key string, flags LockFlags) error {
	return m.acquire(key, flags, m.cfg.FailWhenLocked)
}

// TryAcquire obtains the lock for key or fails immediately with
// ErrAlreadyLocked.
func (m *Manager) TryAcquire(key string, flags LockFlags) error {
	return m.acquire(key, flags, true)
}

// Release drops the lock for key and parks it in the idle cache.
func (m *Manager) Release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.held[key]
	if !ok {
		return nil
	}
	if err := lock.Release(); err != nil {
		return err
	}
	delete(m.held, key)
	m.idle.Add(key, lock)
	return nil
}

// ReleaseAll drops every lock held through this manager, returning the last
// error encountered.
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for key, lock := range m.held {
		if err := lock.Release(); err != nil {
			lastErr = err
		}
		delete(m.held, key)
	}
	return lastErr
}

// Held reports whether this manager currently holds the lock for key.
func (m *Manager) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
