package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayForGrowsAndCaps(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())

	assert.Equal(t, time.Duration(0), b.DelayFor(0), "first reconnect is immediate")

	var prev time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		delay := b.DelayFor(attempt)
		assert.Greater(t, delay, prev, "delay must grow with consecutive failures")
		prev = delay
	}

	// 1000ms * (1.5^1 - 1) = 500ms
	assert.Equal(t, 500*time.Millisecond, b.DelayFor(1))
	// 1000ms * (1.5^2 - 1) = 1250ms
	assert.Equal(t, 1250*time.Millisecond, b.DelayFor(2))

	// Far enough out, the cap holds.
	for attempt := 7; attempt < 50; attempt++ {
		assert.Equal(t, 10*time.Second, b.DelayFor(attempt))
	}
}

func TestDelayForNegativeAttempt(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	assert.Equal(t, time.Duration(0), b.DelayFor(-1))
}
