// Package retry provides the reconnect backoff schedule used by the client
// channel manager.
package retry

import (
	"math"
	"time"

	"chatwire/internal/constants"
)

// BackoffConfig contains configuration for the reconnect schedule.
type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Growth    float64
}

// DefaultBackoffConfig returns the standard reconnect schedule: delays grow
// geometrically from zero and cap at ten seconds.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseDelay: constants.DefaultReconnectBaseMs * time.Millisecond,
		MaxDelay:  constants.DefaultReconnectMaxMs * time.Millisecond,
		Growth:    constants.DefaultReconnectGrowth,
	}
}

// Backoff computes reconnect delays from a consecutive-failure count.
type Backoff struct {
	config BackoffConfig
}

// NewBackoff creates a reconnect schedule.
func NewBackoff(config BackoffConfig) *Backoff {
	return &Backoff{config: config}
}

// DelayFor returns the delay before reconnect attempt number attempt, where
// attempt counts consecutive failures so far. Attempt 0 reconnects
// immediately; later attempts grow as base*(growth^attempt - 1) up to the
// configured cap.
func (b *Backoff) DelayFor(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.config.BaseDelay) * (math.Pow(b.config.Growth, float64(attempt)) - 1)
	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}
