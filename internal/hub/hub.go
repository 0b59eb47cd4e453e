// Package hub tracks live push connections and fans events out to them. The
// hub owns each session's membership in the live set; sessions themselves own
// their transport.
package hub

import (
	"sync"

	"chatwire/internal/metrics"
	"chatwire/internal/models"
	"chatwire/internal/store"

	"github.com/sirupsen/logrus"
)

// Hub maintains the set of live sessions and broadcasts events to them.
// Delivery is best-effort: a session that cannot take an event is removed
// from the live set without affecting delivery to the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]bool
	store    store.MessageStore
	logger   *logrus.Logger
}

// NewHub creates a hub backed by the given store. The store supplies the
// full-state snapshot sent to every newly registered session.
func NewHub(messageStore store.MessageStore, logger *logrus.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]bool),
		store:    messageStore,
		logger:   logger,
	}
}

// Register adds a session to the live set and sends it a full-state snapshot
// so a newly connected or reconnected client is immediately consistent.
// Registering an already-registered session is a no-op.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	if h.sessions[s] {
		h.mu.Unlock()
		return
	}
	s.closed = false
	h.sessions[s] = true
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"identity": s.identity,
		"sessions": count,
	}).Info("Session registered")
	metrics.SetGauge("sessions_active", float64(count), nil, "Currently registered push sessions")

	snapshot, err := models.NewEvent(models.EventUpdate, h.store.GetMessages())
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode snapshot")
		return
	}
	if !h.trySend(s, snapshot) {
		h.Unregister(s)
	}
}

// Unregister removes a session from the live set and closes its send
// channel. Unregistering an unknown session is a no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if !h.sessions[s] {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s)
	s.closed = true
	count := len(h.sessions)
	h.mu.Unlock()

	// Close the channel after releasing the lock; trySend checks the closed
	// flag under the same lock, so nothing can be writing anymore.
	close(s.send)

	h.logger.WithFields(logrus.Fields{
		"identity": s.identity,
		"sessions": count,
	}).Info("Session unregistered")
	metrics.SetGauge("sessions_active", float64(count), nil, "Currently registered push sessions")
}

// Broadcast delivers event to every registered session. Sessions that fail
// delivery are removed; the failure never propagates to the caller.
func (h *Hub) Broadcast(event models.Event) {
	sessions := h.snapshot()

	var failed []*Session
	for _, s := range sessions {
		if !h.trySend(s, event) {
			failed = append(failed, s)
		}
	}

	metrics.IncrementCounter("broadcasts_total", map[string]string{
		"type": string(event.Type),
	}, "Events broadcast to the live set")

	for _, s := range failed {
		h.logger.WithField("identity", s.identity).Warn("Session dropped after failed delivery")
		h.Unregister(s)
	}
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// trySend queues event on the session's send channel without blocking. It
// fails when the session has been closed or its buffer is full, both of which
// mean the session is not keeping up.
func (h *Hub) trySend(s *Session, event models.Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.sessions[s] || s.closed {
		return false
	}

	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}
