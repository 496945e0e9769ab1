// Package ratesignal aggregates remote-call outcomes into a shared backoff
// value. Every concurrent row consults the current backoff before starting
// work, so sustained throttling slows the whole pipeline down without
// resizing the concurrency limiter mid-flight (swapping a semaphore while
// slots are held is unsafe; a shared delay composes).
package ratesignal

import (
	"sync"
	"time"
)

// StatusThrottled is the remote throttling signal (HTTP 429 equivalent).
const StatusThrottled = 429

const maxBackoff = 10 * time.Second

// Tracker is the one piece of mutable state shared by all concurrent row
// operations. Reset at pipeline start, mutated by every fetch outcome,
// discarded at pipeline end.
type Tracker struct {
	mu sync.Mutex

	consecutiveSuccess  int
	consecutiveFailures int
	lastThrottled       bool
	adjustments         int
}

// Snapshot is a point-in-time copy of the tracker counters.
type Snapshot struct {
	ConsecutiveSuccess  int
	ConsecutiveFailures int
	LastThrottled       bool
	Adjustments         int
}

// New returns a tracker in the neutral state.
func New() *Tracker {
	return &Tracker{}
}

// RecordOutcome feeds one remote-call result into the tracker. statusCode 0
// means no HTTP status was observed (transport error, local validation
// failure); success then decides the direction.
func (t *Tracker) RecordOutcome(statusCode int, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case statusCode == StatusThrottled:
		t.consecutiveSuccess = 0
		t.consecutiveFailures++
		t.lastThrottled = true
		t.adjustments++

	case statusCode > 0 && statusCode < 400:
		t.consecutiveFailures = 0
		t.consecutiveSuccess++
		t.lastThrottled = false

	case success:
		t.consecutiveFailures = 0
		t.consecutiveSuccess++
		t.lastThrottled = false

	default:
		t.consecutiveSuccess = 0
		t.consecutiveFailures++
		t.lastThrottled = false
	}
}

// CurrentBackoff computes the delay a row should wait before dispatching
// work: zero while healthy, then 0.5s doubling per consecutive failure up
// to a 10s cap.
func (t *Tracker) CurrentBackoff() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.consecutiveFailures == 0 {
		return 0
	}

	exp := t.consecutiveFailures - 1
	if exp > 5 {
		exp = 5
	}
	d := 500 * time.Millisecond << exp
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Reset returns the tracker to the neutral state. Called at pipeline start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveSuccess = 0
	t.consecutiveFailures = 0
	t.lastThrottled = false
	t.adjustments = 0
}

// Stats returns a copy of the counters for the end-of-run report.
func (t *Tracker) Stats() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ConsecutiveSuccess:  t.consecutiveSuccess,
		ConsecutiveFailures: t.consecutiveFailures,
		LastThrottled:       t.lastThrottled,
		Adjustments:         t.adjustments,
	}
}
