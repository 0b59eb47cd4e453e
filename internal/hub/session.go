package hub

import (
	"encoding/json"
	"time"

	"chatwire/internal/constants"
	"chatwire/internal/metrics"
	"chatwire/internal/models"
	"chatwire/internal/ratelimit"
	"chatwire/internal/store"
	"chatwire/internal/validation"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn is the subset of the websocket connection the session uses. Narrowing
// it keeps sessions testable with a fake transport.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
}

// Deps carries the injectable collaborators for a session. Store, limiter,
// and hub are shared across sessions; clock and keepalive interval exist so
// tests can run without wall-clock time.
type Deps struct {
	Store             store.MessageStore
	Limiter           *ratelimit.CooldownLimiter
	Logger            *logrus.Logger
	Clock             func() time.Time
	KeepaliveInterval time.Duration
	SendBuffer        int
}

// Session is the server side of one push connection: it validates inbound
// frames, applies rate limiting, persists accepted messages, and relays hub
// events back over the wire. A session that closes is simply discarded;
// reconnecting is the client's job.
type Session struct {
	conn     Conn
	hub      *Hub
	identity string
	send     chan models.Event
	closed   bool // guarded by hub.mu

	store     store.MessageStore
	limiter   *ratelimit.CooldownLimiter
	logger    *logrus.Logger
	clock     func() time.Time
	keepalive time.Duration
}

// NewSession creates a session for conn. identity is the rate-limiting key,
// derived by the caller from the remote address.
func NewSession(conn Conn, h *Hub, identity string, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.KeepaliveInterval <= 0 {
		deps.KeepaliveInterval = constants.DefaultKeepaliveIntervalSec * time.Second
	}
	if deps.SendBuffer <= 0 {
		deps.SendBuffer = constants.DefaultSendBufferSize
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	return &Session{
		conn:      conn,
		hub:       h,
		identity:  identity,
		send:      make(chan models.Event, deps.SendBuffer),
		store:     deps.Store,
		limiter:   deps.Limiter,
		logger:    deps.Logger,
		clock:     deps.Clock,
		keepalive: deps.KeepaliveInterval,
	}
}

// Run registers the session with the hub and pumps the connection until it
// closes. It blocks until the read side ends; teardown (unregister, stop
// keepalive, close) is handled on the way out.
func (s *Session) Run() {
	s.hub.Register(s)
	go s.writePump()
	s.readPump()
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(constants.DefaultMaxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(constants.DefaultReadTimeoutSec * time.Second))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(constants.DefaultReadTimeoutSec * time.Second))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithField("identity", s.identity).WithError(err).Warn("Session read failed")
			} else {
				s.logger.WithField("identity", s.identity).Debug("Session closed")
			}
			return
		}

		s.handleFrame(raw)
	}
}

// handleFrame dispatches one inbound frame. Malformed and unknown frames are
// reported or logged; neither tears down the connection.
func (s *Session) handleFrame(raw []byte) {
	var event models.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		s.logger.WithField("identity", s.identity).WithError(err).Debug("Malformed frame")
		s.reply(models.ErrorPayload{Message: "Invalid message format"})
		return
	}

	switch event.Type {
	case models.EventMessage:
		s.handleDraft(event.Payload, false)
	case models.EventFile:
		s.handleDraft(event.Payload, true)
	case models.EventConnection:
		s.handleConnection(event.Payload)
	default:
		s.logger.WithFields(logrus.Fields{
			"identity": s.identity,
			"type":     event.Type,
		}).Warn("Unknown frame type")
	}
}

// handleDraft runs the accept pipeline for a message or file frame: rate
// limit, validate, persist, broadcast. The sender learns about success only
// through the broadcast echo.
func (s *Session) handleDraft(payload json.RawMessage, isFile bool) {
	if !s.limiter.TryAccept(s.identity, s.clock()) {
		waitMsg := "Please wait before sending another message"
		if isFile {
			waitMsg = "Please wait before sending another file"
		}
		metrics.IncrementCounter("sends_rejected_total", map[string]string{"reason": "cooldown"}, "Rejected send attempts")
		s.reply(models.ErrorPayload{Message: waitMsg, Cooldown: true})
		return
	}

	draft, err := validation.ParseDraft(payload)
	if err != nil {
		errMsg := "Invalid message format"
		if isFile {
			errMsg = "Invalid file message format"
		}
		metrics.IncrementCounter("sends_rejected_total", map[string]string{"reason": "validation"}, "Rejected send attempts")
		s.reply(models.ErrorPayload{Message: errMsg, Details: err.Error()})
		return
	}

	msg := s.store.CreateMessage(draft)

	s.logger.WithFields(logrus.Fields{
		"identity":   s.identity,
		"message_id": msg.ID,
	}).Info("Message accepted")
	metrics.IncrementCounter("messages_accepted_total", nil, "Messages persisted and broadcast")

	event, err := models.NewEvent(models.EventMessage, msg)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode message event")
		return
	}
	s.hub.Broadcast(event)
}

func (s *Session) handleConnection(payload json.RawMessage) {
	var conn models.ConnectionPayload
	if err := json.Unmarshal(payload, &conn); err != nil {
		s.logger.WithField("identity", s.identity).Debug("Malformed connection payload")
		return
	}

	switch {
	case conn.Pong:
		s.logger.WithField("identity", s.identity).Debug("Pong received")
	default:
		s.logger.WithFields(logrus.Fields{
			"identity": s.identity,
			"status":   conn.Status,
		}).Debug("Connection status received")
	}
}

// reply queues an event for this session only.
func (s *Session) reply(payload models.ErrorPayload) {
	event, err := models.NewEvent(models.EventError, payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode error event")
		return
	}
	s.hub.trySend(s, event)
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.keepalive)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWriteTimeoutSec * time.Second))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(event); err != nil {
				s.logger.WithField("identity", s.identity).WithError(err).Debug("Session write failed")
				return
			}

		case <-ticker.C:
			if err := s.sendKeepalive(); err != nil {
				s.logger.WithField("identity", s.identity).WithError(err).Debug("Keepalive failed")
				return
			}
		}
	}
}

// sendKeepalive emits the application-level ping event plus a transport
// ping. Any failure tears the session down via the caller.
func (s *Session) sendKeepalive() error {
	now := s.clock()
	event, err := models.NewEvent(models.EventConnection, models.ConnectionPayload{Ping: true, Time: &now})
	if err != nil {
		return err
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(constants.DefaultWriteTimeoutSec * time.Second))
	if err := s.conn.WriteJSON(event); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}
