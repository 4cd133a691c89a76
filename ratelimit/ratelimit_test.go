package ratelimit

import (
	"testing"
	"time"
)

// fakeClock lets tests advance virtual time instead of sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(max, window, clock.Now), clock
}

func TestAllow_ExactBudgetWithinWindow(t *testing.T) {
	limiter, clock := newTestLimiter(3, 15*time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client-a") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	if limiter.Allow("client-a") {
		t.Error("4th attempt within window should be denied")
	}

	// Still denied right at the end of the window
	clock.Advance(15 * time.Minute)
	if limiter.Allow("client-a") {
		t.Error("attempt at exact reset time should be denied")
	}

	// Allowed again once the window has passed
	clock.Advance(time.Second)
	if !limiter.Allow("client-a") {
		t.Error("attempt after window expiry should be allowed")
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	if !limiter.Allow("client-a") {
		t.Error("first attempt for client-a should be allowed")
	}
	if !limiter.Allow("client-b") {
		t.Error("client-b should not be affected by client-a's window")
	}
	if limiter.Allow("client-a") {
		t.Error("second attempt for client-a should be denied")
	}
}

func TestRemainingAttempts(t *testing.T) {
	limiter, clock := newTestLimiter(3, 10*time.Minute)

	if got := limiter.RemainingAttempts("client-a"); got != 3 {
		t.Errorf("unknown identifier remaining = %d, want 3", got)
	}

	limiter.Allow("client-a")
	limiter.Allow("client-a")
	if got := limiter.RemainingAttempts("client-a"); got != 1 {
		t.Errorf("remaining after 2 attempts = %d, want 1", got)
	}

	limiter.Allow("client-a")
	if got := limiter.RemainingAttempts("client-a"); got != 0 {
		t.Errorf("remaining after exhausting budget = %d, want 0", got)
	}

	clock.Advance(10*time.Minute + time.Second)
	if got := limiter.RemainingAttempts("client-a"); got != 3 {
		t.Errorf("remaining after window expiry = %d, want 3", got)
	}
}

func TestRemainingTime(t *testing.T) {
	limiter, clock := newTestLimiter(3, 10*time.Minute)

	if got := limiter.RemainingTime("client-a"); got != 0 {
		t.Errorf("unknown identifier remaining time = %v, want 0", got)
	}

	limiter.Allow("client-a")
	if got := limiter.RemainingTime("client-a"); got != 10*time.Minute {
		t.Errorf("remaining time = %v, want 10m", got)
	}

	clock.Advance(4 * time.Minute)
	if got := limiter.RemainingTime("client-a"); got != 6*time.Minute {
		t.Errorf("remaining time after 4m = %v, want 6m", got)
	}
}

func TestDeniedAttemptsDoNotExtendWindow(t *testing.T) {
	limiter, clock := newTestLimiter(2, 10*time.Minute)

	limiter.Allow("client-a")
	limiter.Allow("client-a")

	// Hammering a denied identifier must not push resetAt forward.
	for i := 0; i < 5; i++ {
		limiter.Allow("client-a")
		clock.Advance(time.Minute)
	}

	clock.Advance(5*time.Minute + time.Second) // 10m1s since the first attempt
	if !limiter.Allow("client-a") {
		t.Error("window should have reset at its original boundary")
	}
}

func TestSweep_RemovesOnlyExpiredEntries(t *testing.T) {
	limiter, clock := newTestLimiter(3, 10*time.Minute)

	limiter.Allow("old")
	clock.Advance(11 * time.Minute)
	limiter.Allow("fresh")

	if got := limiter.Len(); got != 2 {
		t.Fatalf("tracked identifiers before sweep = %d, want 2", got)
	}

	limiter.Sweep()

	if got := limiter.Len(); got != 1 {
		t.Errorf("tracked identifiers after sweep = %d, want 1", got)
	}

	// The expired entry must have been inert either way.
	if !limiter.Allow("old") {
		t.Error("swept identifier should start a fresh window")
	}
}

func TestInfo(t *testing.T) {
	limiter, _ := newTestLimiter(2, 10*time.Minute)

	info := limiter.Info("client-a")
	if !info.Allowed || info.Remaining != 2 {
		t.Errorf("fresh identifier info = %+v, want allowed with 2 remaining", info)
	}

	limiter.Allow("client-a")
	limiter.Allow("client-a")

	info = limiter.Info("client-a")
	if info.Allowed {
		t.Error("exhausted identifier should report not allowed")
	}
	if info.Remaining != 0 {
		t.Errorf("exhausted identifier remaining = %d, want 0", info.Remaining)
	}
	if info.RetryAfter != 10*time.Minute {
		t.Errorf("retry after = %v, want 10m", info.RetryAfter)
	}
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Hour)

	limiter.Allow("client-a")
	if limiter.Allow("client-a") {
		t.Fatal("second attempt should be denied")
	}

	limiter.Reset("client-a")
	if !limiter.Allow("client-a") {
		t.Error("attempt after reset should be allowed")
	}
}
