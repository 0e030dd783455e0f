package boundary

import (
	"sync"
	"time"
)

// windowLimiter is a fixed-window, per-key error-rate limiter. The window
// is a reset-on-expiry counter, not a sliding log: a key's counter resets
// the first time a check observes that more than the window duration has
// elapsed since the last recorded error for that key.
type windowLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count int
	last  time.Time // time of the last recorded (allowed) error
}

func newWindowLimiter(max int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*windowEntry),
	}
}

// allow records an error for the key and reports whether recovery may
// proceed. A rejected call is not recorded, so the window keeps expiring
// from the last allowed error.
func (l *windowLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &windowEntry{count: 1, last: now}
		return true
	}

	if now.Sub(e.last) > l.window {
		e.count = 0
	}

	if e.count >= l.max {
		return false
	}

	e.count++
	e.last = now
	return true
}

// count returns the current counter for a key. Test hook.
func (l *windowLimiter) currentCount(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok {
		return e.count
	}
	return 0
}
