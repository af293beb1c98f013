package latch

import (
	"testing"
	"time"
)

func TestConsumeResets(t *testing.T) {
	var l SendLatch
	if l.Consume() {
		t.Fatal("fresh latch should be unset")
	}
	l.Trigger()
	if !l.Consume() {
		t.Fatal("expected latched after trigger")
	}
	if l.Consume() {
		t.Fatal("second consume should be false")
	}
}

func TestWaitImmediateWhenLatched(t *testing.T) {
	var l SendLatch
	l.Trigger()
	start := time.Now()
	if !l.Wait(5 * time.Second) {
		t.Fatal("expected triggered")
	}
	if time.Since(start) > time.Second {
		t.Fatal("pre-latched wait should resolve immediately")
	}
	if l.Consume() {
		t.Fatal("wait should have cleared the latch")
	}
}

func TestWaitTimeout(t *testing.T) {
	var l SendLatch
	start := time.Now()
	if l.Wait(50 * time.Millisecond) {
		t.Fatal("expected timeout")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned before timeout: %v", elapsed)
	}
}

func TestTriggerWakesWaiter(t *testing.T) {
	var l SendLatch
	done := make(chan bool, 1)
	go func() {
		done <- l.Wait(5 * time.Second)
	}()
	// Give the waiter time to park.
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	l.Trigger()
	select {
	case got := <-done:
		if !got {
			t.Fatal("expected triggered=true")
		}
		if time.Since(start) > time.Second {
			t.Fatal("waiter woke too slowly")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
	// The trigger was consumed by the waiter, not latched.
	if l.Consume() {
		t.Fatal("trigger should not also latch")
	}
}

func TestSecondWaiterRejected(t *testing.T) {
	var l SendLatch
	release := make(chan struct{})
	go func() {
		l.Wait(2 * time.Second)
		close(release)
	}()
	time.Sleep(20 * time.Millisecond)
	if l.Wait(100 * time.Millisecond) {
		t.Fatal("second concurrent wait should fail fast")
	}
	l.Trigger()
	<-release
}

func TestTimeoutThenTrigger(t *testing.T) {
	var l SendLatch
	if l.Wait(10 * time.Millisecond) {
		t.Fatal("expected timeout")
	}
	l.Trigger()
	if !l.Consume() {
		t.Fatal("trigger after abandoned wait should latch")
	}
}
