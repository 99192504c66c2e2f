// Package waitq provides the in-process lock table for the lock broker. Each
// named lock has at most one holder, identified by an opaque token, and a
// FIFO queue of waiters.
package waitq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// LockInfo holds metadata about a named lock with a current holder.
type LockInfo struct {
	// Name is the lock name clients coordinate on.
	Name string `json:"name"`
	// Token identifies the current holder; releases must present it.
	Token string `json:"token"`
	// AcquiredAt is the time the current holder was granted the lock.
	AcquiredAt time.Time `json:"acquired_at"`
	// Waiters is the number of callers queued behind the holder.
	Waiters int `json:"waiters"`
}

// lockState is the per-name holder plus FIFO wait queue. A nil holder token
// means the lock is free (possible only transiently while the state is being
// removed).
type lockState struct {
	token      string
	acquiredAt time.Time
	// waiters receive their grant token on their personal channel; the
	// channel is buffered so a grant never blocks the releaser.
	waiters []*waiter
}

type waiter struct {
	grant     chan string
	abandoned bool
}

// Registry tracks named locks for the broker. It is safe for concurrent use.
type Registry struct {
	locks map[string]*lockState
	mu    sync.Mutex
}

// NewRegistry creates a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*lockState)}
}

// TryAcquire grants the named lock immediately when free, returning the
// holder token, or ok=false when another holder has it.
func (r *Registry) TryAcquire(name string) (token string, ok bool, err error) {
	if name == "" {
		return "", false, fmt.Errorf("lock name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.locks[name]; held {
		return "", false, nil
	}
	token, err = newToken()
	if err != nil {
		return "", false, err
	}
	r.locks[name] = &lockState{token: token, acquiredAt: time.Now()}
	return token, true, nil
}

// Acquire grants the named lock, queueing behind the current holder until it
// is released or ctx is done. The returned token identifies the grant.
func (r *Registry) Acquire(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("lock name cannot be empty")
	}

	r.mu.Lock()
	state, held := r.locks[name]
	if !held {
		token, err := newToken()
		if err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.locks[name] = &lockState{token: token, acquiredAt: time.Now()}
		r.mu.Unlock()
		return token, nil
	}

	w := &waiter{grant: make(chan string, 1)}
	state.waiters = append(state.waiters, w)
	r.mu.Unlock()

	select {
	case token := <-w.grant:
		return token, nil
	case <-ctx.Done():
		return "", r.abandon(name, w, ctx.Err())
	}
}

// abandon removes a waiter that gave up. When the grant raced the
// cancellation and already arrived, the grant wins and is returned as a held
// lock by re-delivering its token through the error-free path.
func (r *Registry) abandon(name string, w *waiter, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case token := <-w.grant:
		// Too late to refuse: pass the lock straight to the next waiter or
		// free it.
		r.releaseLocked(name, token)
		return cause
	default:
	}

	w.abandoned = true
	if state, ok := r.locks[name]; ok {
		for i, queued := range state.waiters {
			if queued == w {
				state.waiters = append(state.waiters[:i], state.waiters[i+1:]...)
				break
			}
		}
	}
	return cause
}

// Release frees the named lock. The token must match the current holder;
// a stale or unknown token reports released=false without disturbing the
// actual holder.
func (r *Registry) Release(name, token string) (released bool, err error) {
	if name == "" {
		return false, fmt.Errorf("lock name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, held := r.locks[name]
	if !held || state.token != token {
		return false, nil
	}
	r.releaseLocked(name, token)
	return true, nil
}

// releaseLocked hands the lock to the next live waiter or removes the state.
// Caller holds r.mu and has verified token is the current holder (or a grant
// being returned).
func (r *Registry) releaseLocked(name, token string) {
	state, ok := r.locks[name]
	if !ok {
		return
	}
	for len(state.waiters) > 0 {
		next := state.waiters[0]
		state.waiters = state.waiters[1:]
		if next.abandoned {
			continue
		}
		grantToken, err := newToken()
		if err != nil {
			// Token generation only fails when the system RNG does; reusing
			// the releaser's token keeps the grant chain alive.
			grantToken = token
		}
		state.token = grantToken
		state.acquiredAt = time.Now()
		next.grant <- grantToken
		return
	}
	delete(r.locks, name)
}

// Info returns metadata for the named lock, or ok=false when it is free.
func (r *Registry) Info(name string) (LockInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, held := r.locks[name]
	if !held {
		return LockInfo{}, false
	}
	return LockInfo{
		Name:       name,
		Token:      state.token,
		AcquiredAt: state.acquiredAt,
		Waiters:    len(state.waiters),
	}, true
}

// List returns a snapshot of every held lock.
func (r *Registry) List() []LockInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]LockInfo, 0, len(r.locks))
	for name, state := range r.locks {
		infos = append(infos, LockInfo{
			Name:       name,
			Token:      state.token,
			AcquiredAt: state.acquiredAt,
			Waiters:    len(state.waiters),
		})
	}
	return infos
}

// Count returns the number of currently held locks.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// newToken creates a cryptographically secure random holder token.
func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
