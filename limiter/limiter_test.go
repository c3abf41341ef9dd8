package limiter

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockClock allows controlling time in tests.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(now time.Time) *mockClock {
	return &mockClock{now: now}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestCooldown(t *testing.T) {
	clock := newMockClock(time.Now())
	c := NewCooldownWithClock(10*time.Second, clock.Now)

	if !c.Check("u1") {
		t.Fatal("expected no cooldown before Start")
	}

	c.Start("u1", 0)
	if c.Check("u1") {
		t.Fatal("expected cooldown to be active immediately after Start")
	}
	if c.LeftTime("u1") != 10*time.Second {
		t.Fatalf("expected 10s left, got %v", c.LeftTime("u1"))
	}

	clock.Advance(10 * time.Second)
	if !c.Check("u1") {
		t.Fatal("expected cooldown to clear after the default duration")
	}
}

func TestRate_EvictsOutsideWindow(t *testing.T) {
	clock := newMockClock(time.Now())
	r := NewRateWithClock(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if !r.Check("k") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if r.Check("k") {
		t.Fatal("4th call within the window should be rejected")
	}

	clock.Advance(time.Minute + time.Second)
	if !r.Check("k") {
		t.Fatal("call after window elapses should be allowed")
	}
}

func TestCount_ResetsOnNewDay(t *testing.T) {
	clock := newMockClock(time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC))
	c := NewCountWithClock(2, time.UTC, clock.Now)

	c.Increase("k")
	c.Increase("k")
	if c.Check("k") {
		t.Fatal("expected limiter to be exhausted")
	}

	clock.Advance(2 * time.Hour) // crosses into the next calendar day
	if !c.Check("k") {
		t.Fatal("expected count to reset on a new calendar day")
	}
}

func TestUserBlock_SelfHeals(t *testing.T) {
	clock := newMockClock(time.Now())
	b := NewUserBlockWithClock(clock.Now)

	if !b.Check("u1") {
		t.Fatal("expected unblocked by default")
	}

	b.SetTrue("u1")
	if b.Check("u1") {
		t.Fatal("expected blocked immediately after SetTrue")
	}

	clock.Advance(UserBlockTTL)
	if !b.Check("u1") {
		t.Fatal("expected block to self-heal after the TTL elapses")
	}
}

func TestConcurrency_AcquireRelease(t *testing.T) {
	c := NewConcurrency(1, nil)
	ctx := context.Background()

	if err := c.Acquire(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Active("k") != 1 {
		t.Fatalf("expected 1 active permit, got %d", c.Active("k"))
	}

	acquired := make(chan struct{})
	go func() {
		_ = c.Acquire(context.Background(), "k")
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while capacity is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	c.Release("k")
	<-acquired
	c.Release("k")
}

func TestConcurrency_ReleaseWithoutAcquireIsNoOp(t *testing.T) {
	c := NewConcurrency(1, nil)
	c.Release("k") // must not panic or go negative
	if c.Active("k") != 0 {
		t.Fatalf("expected 0 active permits, got %d", c.Active("k"))
	}
}
