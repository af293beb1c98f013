// Package debounce provides a cancellable deferred-task primitive: arm or
// reset a quiet-period timer, and fire a function once when the period
// elapses with no further activity.
package debounce

import (
	"sync"
	"time"
)

// Trigger runs fn once after a quiet period of d with no Touch calls.
// Touch while a fire is pending resets the countdown. Safe for concurrent
// use; fn runs on its own goroutine.
type Trigger struct {
	d  time.Duration
	fn func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	gen     uint64 // invalidates fires from superseded timers
}

// New creates a Trigger that fires fn after d of quiet.
func New(d time.Duration, fn func()) *Trigger {
	return &Trigger{d: d, fn: fn}
}

// Touch arms the timer, or resets the countdown if a fire is already pending.
func (t *Trigger) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	t.pending = true
	gen := t.gen
	t.timer = time.AfterFunc(t.d, func() { t.fire(gen) })
}

func (t *Trigger) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.mu.Unlock()
	t.fn()
}

// Cancel drops any pending fire, reporting whether one was pending.
func (t *Trigger) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending {
		return false
	}
	t.gen++
	t.pending = false
	t.timer.Stop()
	return true
}

// Pending reports whether a fire is scheduled.
func (t *Trigger) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
