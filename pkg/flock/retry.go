package flock

import "time"

const (
	// DefaultTimeout bounds how long an acquire keeps retrying.
	DefaultTimeout = 5 * time.Second
	// DefaultCheckInterval is the polling interval between attempts.
	DefaultCheckInterval = 250 * time.Millisecond

	// minSleep is the smallest polling sleep, applied when the interval has
	// already been overshot so the retry loop never busy-spins.
	minSleep = time.Millisecond
)

// retryTimer produces the attempt sequence 0, 1, 2, … gated by wall-clock
// time. Attempt 0 fires immediately; each later attempt fires only while the
// timeout has not elapsed since the first attempt completed. The sleep before
// attempt i+1 is max(minSleep, i*interval − elapsed), normalizing the
// schedule against drift so slow attempts do not accumulate scheduling error.
//
// A timer is single-use; restarting the sequence means constructing a new
// one.
type retryTimer struct {
	timeout  time.Duration
	interval time.Duration
	start    time.Time
	attempt  int
}

func newRetryTimer(timeout, interval time.Duration) *retryTimer {
	return &retryTimer{timeout: timeout, interval: interval}
}

// Next reports whether another attempt may be made, sleeping for the
// normalized interval first. The first call always returns true.
func (t *retryTimer) Next() bool {
	if t.attempt == 0 {
		t.attempt = 1
		return true
	}
	if t.start.IsZero() {
		t.start = time.Now()
	} else {
		sleep := time.Duration(t.attempt-1)*t.interval - time.Since(t.start)
		if sleep < minSleep {
			sleep = minSleep
		}
		time.Sleep(sleep)
	}
	if time.Since(t.start) >= t.timeout {
		return false
	}
	t.attempt++
	return true
}
