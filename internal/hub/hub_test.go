package hub

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"chatwire/internal/models"
	"chatwire/internal/ratelimit"
	"chatwire/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestHub(t *testing.T) (*Hub, *store.MemStore) {
	t.Helper()
	s, err := store.NewMemStore(t.TempDir())
	require.NoError(t, err)
	return NewHub(s, newTestLogger()), s
}

func newTestSession(t *testing.T, h *Hub, identity string, s store.MessageStore) *Session {
	t.Helper()
	return NewSession(&fakeConn{}, h, identity, Deps{
		Store:      s,
		Limiter:    ratelimit.NewCooldownLimiter(3 * time.Second),
		Logger:     newTestLogger(),
		SendBuffer: 8,
	})
}

func mustEvent(t *testing.T, eventType models.EventType, payload interface{}) models.Event {
	t.Helper()
	event, err := models.NewEvent(eventType, payload)
	require.NoError(t, err)
	return event
}

func drain(t *testing.T, s *Session) models.Event {
	t.Helper()
	select {
	case event := <-s.send:
		return event
	default:
		t.Fatal("expected a queued event")
		return models.Event{}
	}
}

func TestRegisterSendsSnapshot(t *testing.T) {
	h, s := newTestHub(t)
	s.CreateMessage(models.MessageDraft{Content: "first", SenderName: "tester"})
	s.CreateMessage(models.MessageDraft{Content: "second", SenderName: "tester"})

	session := newTestSession(t, h, "10.0.0.1", s)
	h.Register(session)

	assert.Equal(t, 1, h.Count())

	snapshot := drain(t, session)
	assert.Equal(t, models.EventUpdate, snapshot.Type)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(snapshot.Payload, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestRegisterIdempotent(t *testing.T) {
	h, s := newTestHub(t)
	session := newTestSession(t, h, "10.0.0.1", s)

	h.Register(session)
	h.Register(session)

	assert.Equal(t, 1, h.Count())
	drain(t, session)
	select {
	case <-session.send:
		t.Fatal("second register must not queue another snapshot")
	default:
	}
}

func TestBroadcastReachesEverySession(t *testing.T) {
	h, s := newTestHub(t)

	sessions := make([]*Session, 5)
	for i := range sessions {
		sessions[i] = newTestSession(t, h, "10.0.0.1", s)
		h.Register(sessions[i])
		drain(t, sessions[i])
	}

	event := mustEvent(t, models.EventMessage, models.Message{ID: 1, Content: "hello", SenderName: "tester"})
	h.Broadcast(event)

	for _, session := range sessions {
		got := drain(t, session)
		assert.Equal(t, models.EventMessage, got.Type)
		assert.JSONEq(t, string(event.Payload), string(got.Payload))
	}
}

func TestBroadcastPrunesStalledSession(t *testing.T) {
	h, s := newTestHub(t)

	healthy := newTestSession(t, h, "10.0.0.1", s)
	h.Register(healthy)
	drain(t, healthy)

	stalled := NewSession(&fakeConn{}, h, "10.0.0.2", Deps{
		Store:      s,
		Limiter:    ratelimit.NewCooldownLimiter(3 * time.Second),
		Logger:     newTestLogger(),
		SendBuffer: 1,
	})
	h.Register(stalled)
	// The snapshot fills the stalled session's one-slot buffer.

	event := mustEvent(t, models.EventMessage, models.Message{ID: 1, Content: "hello", SenderName: "tester"})
	h.Broadcast(event)

	assert.Equal(t, models.EventMessage, drain(t, healthy).Type, "healthy session still receives events")
	assert.Equal(t, 1, h.Count(), "stalled session is removed from the live set")
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h, s := newTestHub(t)
	session := newTestSession(t, h, "10.0.0.1", s)
	h.Register(session)
	drain(t, session)

	h.Unregister(session)
	h.Unregister(session)

	assert.Equal(t, 0, h.Count())
	_, open := <-session.send
	assert.False(t, open, "send channel must be closed after unregister")
}

func TestBroadcastAfterUnregisterIsSafe(t *testing.T) {
	h, s := newTestHub(t)
	session := newTestSession(t, h, "10.0.0.1", s)
	h.Register(session)
	drain(t, session)
	h.Unregister(session)

	event := mustEvent(t, models.EventMessage, models.Message{ID: 1, Content: "hello", SenderName: "tester"})
	h.Broadcast(event)

	assert.Equal(t, 0, h.Count())
}
