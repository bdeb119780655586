package cache

import (
	"sync"
	"time"
)

// DefaultWindow is the trailing period a call counts against.
const DefaultWindow = time.Hour

// RateLimiter throttles call volume per named external source over a
// sliding window. Calls are recorded at permit time, before the guarded
// operation runs, so concurrent callers cannot overshoot the ceiling in a
// burst. In-memory, process-scoped.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	calls  map[string][]time.Time
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		window: window,
		calls:  make(map[string][]time.Time),
	}
}

// CanCall reports whether another call to source would stay under limit.
// Stale timestamps are pruned on every check.
func (l *RateLimiter) CanCall(source string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(source)) < limit
}

// RecordCall counts a call against source.
func (l *RateLimiter) RecordCall(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[source] = append(l.prune(source), time.Now())
}

// TryAcquire checks and records in one atomic step: if the ceiling allows
// another call it is recorded immediately and true is returned.
func (l *RateLimiter) TryAcquire(source string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := l.prune(source)
	if len(recent) >= limit {
		return false
	}
	l.calls[source] = append(recent, time.Now())
	return true
}

// prune drops timestamps older than the window. Caller holds the lock.
func (l *RateLimiter) prune(source string) []time.Time {
	cutoff := time.Now().Add(-l.window)
	recent := l.calls[source][:0]
	for _, ts := range l.calls[source] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	l.calls[source] = recent
	return recent
}
