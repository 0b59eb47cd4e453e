// Package client implements the channel manager for a chatwire server: a
// push connection with reconnect backoff, a polling fallback that runs
// alongside it, and one-shot HTTP sends when the push channel is down.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chatwire/internal/constants"
	"chatwire/internal/errors"
	"chatwire/internal/models"
	"chatwire/internal/retry"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message, MessageDraft, and ErrorPayload alias the wire types so importers
// of this package can name them without reaching into internal packages.
type (
	Message      = models.Message
	MessageDraft = models.MessageDraft
	ErrorPayload = models.ErrorPayload
)

// MessagesHandler receives the current local message list after every change.
type MessagesHandler func([]Message)

// ErrorHandler receives server-reported errors, including cooldown
// advisories.
type ErrorHandler func(ErrorPayload)

// Manager maintains a client's view of the chat. Push delivery and the poll
// loop feed the same local state, keyed by message id so duplicate delivery
// across the two paths is a no-op.
type Manager struct {
	baseURL      string
	httpClient   *http.Client
	dialer       *websocket.Dialer
	logger       *logrus.Logger
	backoff      *retry.Backoff
	pollInterval time.Duration

	onMessages MessagesHandler
	onError    ErrorHandler

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	messages []models.Message
	known    map[int64]bool
	cancel   context.CancelFunc
	started  bool
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = dialer }
}

func WithBackoff(backoff *retry.Backoff) Option {
	return func(m *Manager) { m.backoff = backoff }
}

func WithPollInterval(interval time.Duration) Option {
	return func(m *Manager) { m.pollInterval = interval }
}

func WithMessagesHandler(handler MessagesHandler) Option {
	return func(m *Manager) { m.onMessages = handler }
}

func WithErrorHandler(handler ErrorHandler) Option {
	return func(m *Manager) { m.onError = handler }
}

// NewManager creates a channel manager for the server at baseURL, for
// example "http://localhost:8080".
func NewManager(baseURL string, opts ...Option) *Manager {
	m := &Manager{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		dialer:       websocket.DefaultDialer,
		logger:       logrus.New(),
		backoff:      retry.NewBackoff(retry.DefaultBackoffConfig()),
		pollInterval: constants.DefaultPollIntervalSec * time.Second,
		known:        make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start probes the server once and, if it is reachable, launches the push
// and poll loops. An unreachable server fails the call; neither loop starts.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New(errors.ErrCodeInternalError, "manager already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.probe(ctx); err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(2)
	go m.connectLoop(runCtx)
	go m.pollLoop(runCtx)
	return nil
}

// Stop tears the manager down: the poll loop and any pending reconnect stop,
// and the open push connection is closed. It blocks until both loops exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()
}

// Messages returns a copy of the current local message list.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Connected reports whether the push connection is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

func (m *Manager) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/health", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to build health request")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamUnavailableError("chat server", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewUpstreamUnavailableError("chat server",
			fmt.Errorf("health probe returned %d", resp.StatusCode))
	}
	return nil
}

// connectLoop dials the push endpoint, pumps it until it drops, then redials
// after a backoff delay that grows with consecutive failures. A successful
// connection resets the failure count.
func (m *Manager) connectLoop(ctx context.Context) {
	defer m.wg.Done()

	attempts := 0
	for {
		delay := m.backoff.DelayFor(attempts)
		if delay > 0 {
			m.logger.WithFields(logrus.Fields{
				"attempt":  attempts,
				"delay_ms": delay.Milliseconds(),
			}).Info("Scheduling reconnect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		conn, err := m.dial(ctx)
		if err != nil {
			attempts++
			m.logger.WithError(err).Debug("Push connection failed")
			continue
		}

		attempts = 0
		m.logger.Info("Push connection established")

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		// ReadJSON does not observe ctx; close the conn when the context
		// ends so the read loop cannot outlive a teardown that raced the
		// dial.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-watchDone:
			}
		}()

		m.readLoop(ctx, conn)
		close(watchDone)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		attempts++
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(m.baseURL, "http", "ws", 1) + "/ws"
	conn, resp, err := m.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.NewTransportError("dial", err)
	}

	announce, err := models.NewEvent(models.EventConnection, models.ConnectionPayload{
		Status: "connected",
		Client: "go",
	})
	if err == nil {
		err = conn.WriteJSON(announce)
	}
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewTransportError("announce", err)
	}

	return conn, nil
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var event models.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil {
				m.logger.WithError(err).Debug("Push connection dropped")
			}
			return
		}
		m.dispatch(conn, event)
	}
}

// dispatch routes one inbound event. All local-state changes funnel through
// applyMessage and applyUpdate, which is what makes push and poll delivery
// safe to run together.
func (m *Manager) dispatch(conn *websocket.Conn, event models.Event) {
	switch event.Type {
	case models.EventMessage, models.EventFile:
		var msg models.Message
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			m.logger.WithError(err).Debug("Malformed message event")
			return
		}
		m.applyMessage(msg)

	case models.EventUpdate:
		var messages []models.Message
		if err := json.Unmarshal(event.Payload, &messages); err != nil {
			m.logger.WithError(err).Debug("Malformed update event")
			return
		}
		m.applyUpdate(messages)

	case models.EventConnection:
		var payload models.ConnectionPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		if payload.Ping {
			m.replyPong(conn)
		}

	case models.EventError:
		var payload models.ErrorPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		m.reportError(payload)

	default:
		m.logger.WithField("type", event.Type).Debug("Unknown event type")
	}
}

func (m *Manager) replyPong(conn *websocket.Conn) {
	now := time.Now()
	pong, err := models.NewEvent(models.EventConnection, models.ConnectionPayload{Pong: true, Time: &now})
	if err != nil {
		return
	}
	if err := m.writeEvent(conn, pong); err != nil {
		m.logger.WithError(err).Debug("Pong reply failed")
	}
}

func (m *Manager) writeEvent(conn *websocket.Conn, event models.Event) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(event)
}

// applyMessage appends one message. Applying an id that is already known is
// a no-op, so the same message arriving over push and poll lands once.
func (m *Manager) applyMessage(msg models.Message) {
	m.mu.Lock()
	if m.known[msg.ID] {
		m.mu.Unlock()
		return
	}
	m.known[msg.ID] = true
	m.messages = append(m.messages, msg)
	snapshot := make([]models.Message, len(m.messages))
	copy(snapshot, m.messages)
	m.mu.Unlock()

	m.notify(snapshot)
}

// applyUpdate replaces the local list with the server's snapshot.
func (m *Manager) applyUpdate(messages []models.Message) {
	m.mu.Lock()
	m.messages = make([]models.Message, len(messages))
	copy(m.messages, messages)
	m.known = make(map[int64]bool, len(messages))
	for _, msg := range messages {
		m.known[msg.ID] = true
	}
	snapshot := make([]models.Message, len(m.messages))
	copy(snapshot, m.messages)
	m.mu.Unlock()

	m.notify(snapshot)
}

func (m *Manager) notify(messages []models.Message) {
	if m.onMessages != nil {
		m.onMessages(messages)
	}
}

func (m *Manager) reportError(payload models.ErrorPayload) {
	if m.onError != nil {
		m.onError(payload)
	}
}

// pollLoop fetches the full message list on a fixed interval. It runs even
// while the push connection is healthy; the snapshot replace keeps the two
// paths consistent.
func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.poll(ctx); err != nil {
				m.logger.WithError(err).Debug("Poll failed")
			}
		}
	}
}

func (m *Manager) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/messages", nil)
	if err != nil {
		return err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError("poll", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll returned %d", resp.StatusCode)
	}

	var messages []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return err
	}

	m.applyUpdate(messages)
	return nil
}

// Send delivers a message over the push connection when it is open, falling
// back to the one-shot HTTP path otherwise. A rate-limit rejection on either
// path surfaces as the same cooldown advisory.
func (m *Manager) Send(ctx context.Context, draft MessageDraft) error {
	return m.send(ctx, draft, models.EventMessage)
}

// SendFile uploads the attachment first, then sends a file message carrying
// the returned reference alongside the normal fields.
func (m *Manager) SendFile(ctx context.Context, draft MessageDraft, filename string, data []byte) error {
	fileURL, err := m.upload(ctx, filename, data)
	if err != nil {
		return err
	}

	size := int64(len(data))
	draft.FileName = &filename
	draft.FileSize = &size
	draft.FileURL = &fileURL
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if mimeType, ok := constants.MimeTypes[ext]; ok {
			draft.FileType = &mimeType
		}
	}

	return m.send(ctx, draft, models.EventFile)
}

func (m *Manager) send(ctx context.Context, draft models.MessageDraft, eventType models.EventType) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		event, err := models.NewEvent(eventType, draft)
		if err != nil {
			return err
		}
		if err := m.writeEvent(conn, event); err == nil {
			return nil
		}
		m.logger.Debug("Push send failed, using fallback")
	}

	return m.sendFallback(ctx, draft)
}

func (m *Manager) sendFallback(ctx context.Context, draft models.MessageDraft) error {
	body, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError("send", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusTooManyRequests:
		var payload models.ErrorPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			payload = models.ErrorPayload{Message: "Please wait before sending another message", Cooldown: true}
		}
		m.reportError(payload)
		return errors.NewRateLimitError(payload.Message)
	default:
		var payload models.ErrorPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
			m.reportError(payload)
			return errors.New(errors.ErrCodeValidationFailed, payload.Message)
		}
		return fmt.Errorf("send returned %d", resp.StatusCode)
	}
}

func (m *Manager) upload(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", errors.NewTransportError("upload", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned %d", resp.StatusCode)
	}

	var body struct {
		FileURL string `json:"fileUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.FileURL == "" {
		return "", io.ErrUnexpectedEOF
	}
	return body.FileURL, nil
}
