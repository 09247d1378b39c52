package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Result is the outcome of a single rate-limit check.
type Result struct {
	// Allowed indicates whether this call fit within the limit.
	Allowed bool

	// Limit is the maximum number of calls per window.
	Limit int

	// Remaining is the number of calls left in the current window.
	// Zero when the limit is exhausted.
	Remaining int

	// ResetAt is when the current window elapses and the counter resets.
	ResetAt time.Time
}

// window tracks one scope's counter within its current fixed window.
type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window rate limiter keyed by scope.
//
// Counters live in memory only; they are created on first check and reset
// in place when their window elapses. All state for one check is mutated
// under a single lock, so check-and-increment never splits across
// interleaving goroutines.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is swapped out by tests to control window expiry.
	now func() time.Time
}

// NewLimiter creates a new scope-keyed rate limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// ScopeKey builds a limiter scope key from its identifying parts.
// Typically rule id, agent id, and limit type.
func ScopeKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// Check records one call against the scope and reports whether it fit
// within limit calls per window.
//
// If the scope's window has elapsed, the counter resets and a new window
// starts at the current time. The call is counted even when rejected, but
// a rejected call never extends the window.
func (l *Limiter) Check(scopeKey string, limit int, windowDur time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[scopeKey]
	if !ok || now.Sub(w.start) >= windowDur {
		w = &window{start: now}
		l.windows[scopeKey] = w
	}

	w.count++

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.start.Add(windowDur),
	}
}

// Peek reports the current count for a scope without incrementing it.
// Returns zero for an unknown scope or an elapsed window.
func (l *Limiter) Peek(scopeKey string, windowDur time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[scopeKey]
	if !ok || l.now().Sub(w.start) >= windowDur {
		return 0
	}
	return w.count
}

// Reset clears the counter for one scope.
func (l *Limiter) Reset(scopeKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, scopeKey)
}

// ResetAll clears every counter. This is primarily for testing.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows = make(map[string]*window)
}

// Len returns the number of tracked scopes.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}
