// Package latch implements the single-slot "send requested" notification
// primitive shared between the HTTP surface and the agent-facing API.
//
// A send is observed exactly once: either by a non-blocking Consume poll or
// by a blocking Wait. The latch holds at most one waiter at a time; a
// trigger with no waiter active simply latches for the next observer.
package latch

import (
	"sync"
	"time"
)

// SendLatch is a single boolean event with poll and wait consumption modes.
// The zero value is ready to use. The latch moves between three states:
// idle, latched (a send happened with nobody watching), and waiting (one
// caller is blocked in Wait).
type SendLatch struct {
	mu      sync.Mutex
	latched bool
	waiter  chan struct{} // non-nil while a Wait is outstanding
}

// Trigger records that a send was requested. If a waiter is blocked it is
// woken directly; otherwise the event latches for the next Consume or Wait.
func (l *SendLatch) Trigger() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiter != nil {
		close(l.waiter)
		l.waiter = nil
		return
	}
	l.latched = true
}

// Consume reports whether a send happened since the last consumption and
// resets the latch. Never blocks.
func (l *SendLatch) Consume() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.latched
	l.latched = false
	return v
}

// Wait blocks until a send is triggered or timeout elapses, returning true
// when a send was observed. A send latched before Wait was called resolves
// immediately and clears the latch.
//
// Only one Wait may be outstanding; a second concurrent Wait returns false
// immediately rather than queueing. Other goroutines are never blocked by a
// Wait in progress.
func (l *SendLatch) Wait(timeout time.Duration) bool {
	l.mu.Lock()
	if l.latched {
		l.latched = false
		l.mu.Unlock()
		return true
	}
	if l.waiter != nil {
		l.mu.Unlock()
		return false
	}
	ch := make(chan struct{})
	l.waiter = ch
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.waiter == ch {
			// Timed out before any trigger; abandon the slot.
			l.waiter = nil
			return false
		}
		// Trigger won the race between timer fire and lock acquisition.
		return true
	}
}
