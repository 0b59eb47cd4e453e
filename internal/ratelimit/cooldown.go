// Package ratelimit implements the per-identity cooldown used to throttle
// message sends. One accepted send per identity per window; a rejected
// attempt does not extend the window.
package ratelimit

import (
	"sync"
	"time"
)

// CooldownLimiter tracks the last accepted send per identity. It is
// transport-agnostic: callers derive the identity (normally the remote
// address) and supply the current time, which keeps the limiter trivially
// testable with a fake clock.
//
// Entries are never evicted. This is best-effort abuse mitigation, not a
// hard quota system, so growth bounded by process lifetime is acceptable.
type CooldownLimiter struct {
	mu           sync.Mutex
	window       time.Duration
	lastAccepted map[string]time.Time
}

// NewCooldownLimiter creates a limiter with the given cooldown window.
func NewCooldownLimiter(window time.Duration) *CooldownLimiter {
	return &CooldownLimiter{
		window:       window,
		lastAccepted: make(map[string]time.Time),
	}
}

// TryAccept reports whether identity may send at now. Acceptance restarts the
// identity's cooldown; rejection leaves the stored timestamp untouched. The
// first attempt from an unseen identity is always accepted.
func (l *CooldownLimiter) TryAccept(identity string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, seen := l.lastAccepted[identity]
	if seen && now.Sub(last) < l.window {
		return false
	}

	l.lastAccepted[identity] = now
	return true
}

// Window returns the configured cooldown window.
func (l *CooldownLimiter) Window() time.Duration {
	return l.window
}
