package flock

import (
	"fmt"
	"sync"
)

// MemoryManager is an in-process KeyedLocker backed by per-key RWMutexes
// instead of lock files. It suits tests and single-process callers that want
// the KeyedLocker shape without touching the filesystem.
//
// Note: MemoryManager coordinates goroutines only. Cross-process callers
// need a Manager on a shared directory.
type MemoryManager struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

// memEntry holds the per-key RWMutex and a reference count so the entry can
// be removed from the map when nothing is using it. readers counts the active
// shared holders so each Release undoes exactly one RLock.
type memEntry struct {
	rw      sync.RWMutex
	refs    int
	readers int
	writer  bool
}

func (e *memEntry) held() bool { return e.writer || e.readers > 0 }

var _ KeyedLocker = (*MemoryManager)(nil)

// NewMemoryManager creates an empty MemoryManager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{entries: make(map[string]*memEntry)}
}

// Acquire obtains the lock for key, blocking until it is free. LockShared
// maps to a reader lock, anything else to a writer lock.
func (m *MemoryManager) Acquire(key string, flags LockFlags) error {
	entry := m.getOrCreate(key)
	if flags&LockShared != 0 {
		entry.rw.RLock()
	} else {
		entry.rw.Lock()
	}
	m.mu.Lock()
	if flags&LockShared != 0 {
		entry.readers++
	} else {
		entry.writer = true
	}
	m.mu.Unlock()
	return nil
}

// TryAcquire obtains the lock for key without blocking, returning
// ErrAlreadyLocked when another holder has it.
func (m *MemoryManager) TryAcquire(key string, flags LockFlags) error {
	entry := m.getOrCreate(key)
	var ok bool
	if flags&LockShared != 0 {
		ok = entry.rw.TryRLock()
	} else {
		ok = entry.rw.TryLock()
	}
	if !ok {
		m.decRef(key)
		return fmt.Errorf("%w: key %q", ErrAlreadyLocked, key)
	}
	m.mu.Lock()
	if flags&LockShared != 0 {
		entry.readers++
	} else {
		entry.writer = true
	}
	m.mu.Unlock()
	return nil
}

// Release drops one holder of key: the writer, or one of the shared readers.
// Releasing an unheld key is a no-op.
func (m *MemoryManager) Release(key string) error {
	m.mu.Lock()
	entry, exists := m.entries[key]
	if !exists || !entry.held() {
		m.mu.Unlock()
		return nil
	}
	shared := entry.readers > 0
	if shared {
		entry.readers--
	} else {
		entry.writer = false
	}
	m.mu.Unlock()

	if shared {
		entry.rw.RUnlock()
	} else {
		entry.rw.Unlock()
	}
	m.decRef(key)
	return nil
}

// ReleaseAll drops every lock currently held through this manager, including
// all shared holders of each key.
func (m *MemoryManager) ReleaseAll() error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	for _, key := range keys {
		for m.heldBy(key) {
			_ = m.Release(key) //nolint:errcheck
		}
	}
	return nil
}

// heldBy reports whether key currently has any holder.
func (m *MemoryManager) heldBy(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return ok && entry.held()
}

// getOrCreate returns (or creates) the entry for key, incrementing the
// reference count.
func (m *MemoryManager) getOrCreate(key string) *memEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memEntry{}
		m.entries[key] = entry
	}
	entry.refs++
	return entry
}

// decRef decrements the reference count for key and drops the entry when no
// caller holds a reference.
func (m *MemoryManager) decRef(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok {
		entry.refs--
		if entry.refs <= 0 {
			delete(m.entries, key)
		}
	}
}
