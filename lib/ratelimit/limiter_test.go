package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAdmitBoundary(t *testing.T) {
	clock := newFakeClock()
	l := New(10, 60*time.Second)
	l.SetClock(clock.Now)

	for i := 0; i < 10; i++ {
		if !l.Admit("alice") {
			t.Fatalf("request %d should be admitted", i+1)
		}
		clock.Advance(time.Second)
	}

	if l.Admit("alice") {
		t.Fatal("11th request within the window should be rejected")
	}

	// a rejected request is not recorded, so the oldest timestamp leaves the
	// window exactly 60s after it was taken
	clock.Advance(50 * time.Second)
	if !l.Admit("alice") {
		t.Fatal("request should be admitted once the oldest timestamp left the window")
	}
	if l.Admit("alice") {
		t.Fatal("only one slot should have been freed")
	}
}

func TestAdmitResumesAfterWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(10, 60*time.Second)
	l.SetClock(clock.Now)

	for i := 0; i < 10; i++ {
		l.Admit("bob")
	}
	if l.Admit("bob") {
		t.Fatal("limit should be reached")
	}

	clock.Advance(60 * time.Second)
	for i := 0; i < 10; i++ {
		if !l.Admit("bob") {
			t.Fatalf("request %d after the window should be admitted", i+1)
		}
	}
}

func TestAdmitIsPerIdentity(t *testing.T) {
	clock := newFakeClock()
	l := New(2, time.Minute)
	l.SetClock(clock.Now)

	l.Admit("a")
	l.Admit("a")
	if l.Admit("a") {
		t.Error("identity a should be limited")
	}
	if !l.Admit("b") {
		t.Error("identity b must not be affected by a")
	}
}

func TestDefaults(t *testing.T) {
	l := New(0, 0)
	if l.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", l.Limit(), DefaultLimit)
	}
	if l.Window() != DefaultWindow {
		t.Errorf("Window() = %s, want %s", l.Window(), DefaultWindow)
	}
}

func TestAdmitConcurrentSameIdentity(t *testing.T) {
	l := New(10, time.Hour)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 10 {
		t.Errorf("expected exactly 10 admitted requests, got %d", admitted.Load())
	}
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	l := New(10, time.Minute)
	l.SetClock(clock.Now)

	l.Admit("old")
	clock.Advance(30 * time.Second)
	l.Admit("recent")

	if l.Len() != 2 {
		t.Fatalf("expected 2 tracked identities, got %d", l.Len())
	}

	clock.Advance(40 * time.Second)
	if n := l.Sweep(); n != 1 {
		t.Errorf("expected 1 swept identity, got %d", n)
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 tracked identity after sweep, got %d", l.Len())
	}

	clock.Advance(time.Minute)
	l.Sweep()
	if l.Len() != 0 {
		t.Errorf("expected no tracked identities, got %d", l.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New(10, time.Millisecond)
	l.Admit("x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for l.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.Len() != 0 {
		t.Error("Run should have swept the idle identity")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
