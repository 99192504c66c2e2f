package waitq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireFree(t *testing.T) {
	r := NewRegistry()

	token, ok, err := r.TryAcquire("jobs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, r.Count())
}

func TestTryAcquireHeld(t *testing.T) {
	r := NewRegistry()

	_, ok, err := r.TryAcquire("jobs")
	require.NoError(t, err)
	require.True(t, ok)

	token, ok, err := r.TryAcquire("jobs")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestTryAcquireEmptyName(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.TryAcquire("")
	assert.Error(t, err)
}

func TestReleaseWithToken(t *testing.T) {
	r := NewRegistry()

	token, ok, err := r.TryAcquire("jobs")
	require.NoError(t, err)
	require.True(t, ok)

	released, err := r.Release("jobs", token)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Zero(t, r.Count())
}

func TestReleaseStaleToken(t *testing.T) {
	r := NewRegistry()

	_, ok, err := r.TryAcquire("jobs")
	require.NoError(t, err)
	require.True(t, ok)

	released, err := r.Release("jobs", "not-the-holder")
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, 1, r.Count())
}

func TestReleaseUnknownName(t *testing.T) {
	r := NewRegistry()

	released, err := r.Release("never-acquired", "x")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	r := NewRegistry()

	first, err := r.Acquire(context.Background(), "jobs")
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		token, err := r.Acquire(context.Background(), "jobs")
		if err == nil {
			got <- token
		}
	}()

	// Give the waiter time to queue
	require.Eventually(t, func() bool {
		info, ok := r.Info("jobs")
		return ok && info.Waiters == 1
	}, time.Second, 5*time.Millisecond)

	released, err := r.Release("jobs", first)
	require.NoError(t, err)
	require.True(t, released)

	select {
	case token := <-got:
		assert.NotEmpty(t, token)
		assert.NotEqual(t, first, token)
	case <-time.After(time.Second):
		t.Fatal("waiter was never granted the lock")
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	r := NewRegistry()

	first, err := r.Acquire(context.Background(), "jobs")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = r.Acquire(ctx, "jobs")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned waiter must not receive the lock later
	released, err := r.Release("jobs", first)
	require.NoError(t, err)
	require.True(t, released)
	assert.Zero(t, r.Count())
}

func TestAcquireFIFOOrder(t *testing.T) {
	r := NewRegistry()

	first, err := r.Acquire(context.Background(), "jobs")
	require.NoError(t, err)

	order := make(chan int, 2)
	var ready sync.WaitGroup

	for i := 1; i <= 2; i++ {
		i := i
		ready.Add(1)
		go func() {
			// Queue the waiters in a known order
			require.Eventually(t, func() bool {
				info, ok := r.Info("jobs")
				return ok && info.Waiters == i-1
			}, time.Second, time.Millisecond)

			ready.Done()
			token, err := r.Acquire(context.Background(), "jobs")
			if err != nil {
				return
			}
			order <- i
			r.Release("jobs", token) //nolint:errcheck
		}()
	}

	ready.Wait()
	require.Eventually(t, func() bool {
		info, ok := r.Info("jobs")
		return ok && info.Waiters == 2
	}, time.Second, time.Millisecond)

	_, err = r.Release("jobs", first)
	require.NoError(t, err)

	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestInfoAndList(t *testing.T) {
	r := NewRegistry()

	_, ok, err := r.TryAcquire("alpha")
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = r.TryAcquire("beta")
	require.NoError(t, err)
	require.True(t, ok)

	info, held := r.Info("alpha")
	require.True(t, held)
	assert.Equal(t, "alpha", info.Name)
	assert.Zero(t, info.Waiters)
	assert.False(t, info.AcquiredAt.IsZero())

	_, held = r.Info("missing")
	assert.False(t, held)

	assert.Len(t, r.List(), 2)
}

func TestConcurrentAcquireRelease(t *testing.T) {
	r := NewRegistry()

	const numWorkers = 10
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := r.Acquire(context.Background(), "counter")
			if err != nil {
				return
			}
			counter++
			r.Release("counter", token) //nolint:errcheck
		}()
	}

	wg.Wait()
	assert.Equal(t, numWorkers, counter)
	assert.Zero(t, r.Count())
}
