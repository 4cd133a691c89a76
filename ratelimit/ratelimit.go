package ratelimit

import (
	"sync"
	"time"

	"contact-gateway/model"
)

// entry is one fixed-window counter. Once now passes resetAt the entry is
// functionally inert and reads as allowed, whether or not it has been swept.
type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter keyed by client identifier.
// All state is in memory and lost on restart, which is the intended
// lifecycle: counters are abuse friction, not a security boundary.
//
// The clock is injected so tests can advance virtual time.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// New creates a limiter allowing maxAttempts per window for each identifier.
func New(maxAttempts int, window time.Duration) *Limiter {
	return NewWithClock(maxAttempts, window, time.Now)
}

// NewWithClock is New with an explicit clock, for tests.
func NewWithClock(maxAttempts int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		entries:     make(map[string]*entry),
		maxAttempts: maxAttempts,
		window:      window,
		now:         now,
	}
}

// Allow records an attempt for identifier and reports whether it is within
// the window budget. The check and the increment happen under one lock so
// two rapid calls can never both read a stale count.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]

	if !ok || now.After(e.resetAt) {
		l.entries[identifier] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if e.count >= l.maxAttempts {
		return false
	}

	e.count++
	return true
}

// RemainingAttempts reports how many attempts identifier has left in the
// current window without recording one.
func (l *Limiter) RemainingAttempts(identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || l.now().After(e.resetAt) {
		return l.maxAttempts
	}

	remaining := l.maxAttempts - e.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingTime reports how long until identifier's window resets. Zero means
// no active window.
func (l *Limiter) RemainingTime(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		return 0
	}

	remaining := e.resetAt.Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Info returns the introspection view used for rate-limit responses.
func (l *Limiter) Info(identifier string) model.RateLimitInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]
	if !ok || now.After(e.resetAt) {
		return model.RateLimitInfo{Allowed: true, Remaining: l.maxAttempts}
	}

	remaining := l.maxAttempts - e.count
	if remaining < 0 {
		remaining = 0
	}

	return model.RateLimitInfo{
		Allowed:    e.count < l.maxAttempts,
		Remaining:  remaining,
		ResetAt:    e.resetAt,
		RetryAfter: e.resetAt.Sub(now),
	}
}

// Reset forgets identifier entirely.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
}

// Sweep removes entries whose window has expired. Housekeeping only:
// expired entries already read as allowed.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, id)
		}
	}
}

// StartSweeping runs Sweep every interval until stop is closed.
func (l *Limiter) StartSweeping(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Len reports the number of tracked identifiers, swept or not.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
