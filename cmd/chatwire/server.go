package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chatwire/internal/constants"
	"chatwire/internal/errors"
	"chatwire/internal/hub"
	"chatwire/internal/httputil"
	"chatwire/internal/metrics"
	"chatwire/internal/middleware"
	"chatwire/internal/models"
	"chatwire/internal/privacy"
	"chatwire/internal/ratelimit"
	"chatwire/internal/store"
	"chatwire/internal/validation"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// projectionTimeLayout is ISO-8601 with millisecond precision; timestamps are
// rendered in UTC so the layout always produces a trailing Z.
const projectionTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Server owns the HTTP surface: the REST API, the file endpoints, and the
// websocket upgrade. The store, hub, and limiter are injected so tests can
// drive the full surface with fake clocks.
type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	store    store.MessageStore
	hub      *hub.Hub
	limiter  *ratelimit.CooldownLimiter
	cfg      *models.Config
	clock    func() time.Time
	upgrader websocket.Upgrader
	server   *http.Server
}

func NewServer(cfg *models.Config, messageStore store.MessageStore, h *hub.Hub, limiter *ratelimit.CooldownLimiter, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		store:   messageStore,
		hub:     h,
		limiter: limiter,
		cfg:     cfg,
		clock:   time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))
	s.router.Use(middleware.CORS)

	s.router.HandleFunc("/api/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/messages", s.handleListMessages()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/messages", s.handleCreateMessage()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/messages/{id}", s.handleGetMessage()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/say", s.handleSay()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/upload", s.handleUpload()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/files/{fileId}", s.handleGetFile()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	// Preflight requests need a matching route or mux skips the middleware
	// chain; the CORS middleware answers them before this handler runs.
	s.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, payload models.ErrorPayload) {
	s.writeJSON(w, status, payload)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   s.clock(),
		})
	}
}

// handleListMessages serves the message list. Without parameters it returns
// the full JSON array; with attribute it returns plain-text lines projecting
// the requested fields, and amount keeps only the last N entries.
func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages := s.store.GetMessages()

		if amountParam := r.URL.Query().Get("amount"); amountParam != "" {
			if amount, err := strconv.Atoi(amountParam); err == nil && amount > 0 && amount < len(messages) {
				messages = messages[len(messages)-amount:]
			}
		}

		attributeParam := r.URL.Query().Get("attribute")
		if attributeParam == "" {
			s.writeJSON(w, http.StatusOK, messages)
			return
		}

		attributes := strings.Split(attributeParam, ",")
		lines := make([]string, 0, len(messages))
		for _, msg := range messages {
			fields := make([]string, 0, len(attributes))
			for _, attribute := range attributes {
				switch strings.TrimSpace(attribute) {
				case "text":
					fields = append(fields, msg.Content)
				case "username":
					fields = append(fields, privacy.MaskSenderName(msg.SenderName))
				case "time":
					fields = append(fields, msg.Timestamp.UTC().Format(projectionTimeLayout))
				}
			}
			lines = append(lines, strings.Join(fields, " ; "))
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprint(w, strings.Join(lines, "\n")); err != nil {
			s.logger.WithError(err).Error("Failed to write projection")
		}
	}
}

func (s *Server) handleGetMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{Message: "Invalid message id"})
			return
		}

		msg, err := s.store.GetMessage(id)
		if err != nil {
			if errors.IsNotFound(err) {
				s.writeError(w, http.StatusNotFound, models.ErrorPayload{Message: "Message not found"})
				return
			}
			s.writeError(w, http.StatusInternalServerError, models.ErrorPayload{Message: "Internal server error"})
			return
		}

		s.writeJSON(w, http.StatusOK, msg)
	}
}

// handleCreateMessage is the one-shot fallback send path. It applies the same
// cooldown, validation, and broadcast pipeline as the push channel.
func (s *Server) handleCreateMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := httputil.GetClientIP(r)
		if !s.limiter.TryAccept(identity, s.clock()) {
			metrics.IncrementCounter("sends_rejected_total", map[string]string{"reason": "cooldown"}, "Rejected send attempts")
			s.writeError(w, http.StatusTooManyRequests, models.ErrorPayload{
				Message:  "Please wait before sending another message",
				Cooldown: true,
			})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{Message: "Invalid message format"})
			return
		}

		draft, err := validation.ParseDraft(body)
		if err != nil {
			metrics.IncrementCounter("sends_rejected_total", map[string]string{"reason": "validation"}, "Rejected send attempts")
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{
				Message: "Invalid message format",
				Details: err.Error(),
			})
			return
		}

		s.createAndBroadcast(w, draft)
	}
}

// handleSay creates a message from query parameters, for curl-style senders.
func (s *Server) handleSay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		if text == "" {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{Message: "text parameter is required"})
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			name = constants.DefaultSenderName
		}

		identity := httputil.GetClientIP(r)
		if !s.limiter.TryAccept(identity, s.clock()) {
			metrics.IncrementCounter("sends_rejected_total", map[string]string{"reason": "cooldown"}, "Rejected send attempts")
			s.writeError(w, http.StatusTooManyRequests, models.ErrorPayload{
				Message:  "Please wait before sending another message",
				Cooldown: true,
			})
			return
		}

		draft := models.MessageDraft{Content: text, SenderName: name}
		if err := validation.ValidateDraft(&draft); err != nil {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{
				Message: "Invalid message format",
				Details: err.Error(),
			})
			return
		}

		s.createAndBroadcast(w, draft)
	}
}

func (s *Server) createAndBroadcast(w http.ResponseWriter, draft models.MessageDraft) {
	msg := s.store.CreateMessage(draft)
	metrics.IncrementCounter("messages_accepted_total", nil, "Messages persisted and broadcast")

	event, err := models.NewEvent(models.EventMessage, msg)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode message event")
	} else {
		s.hub.Broadcast(event)
	}

	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := int64(s.cfg.Upload.MaxUploadSizeMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(maxBytes); err != nil {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{Message: "File too large or malformed upload"})
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, models.ErrorPayload{Message: "file field is required"})
			return
		}
		defer func() {
			if err := file.Close(); err != nil {
				s.logger.WithError(err).Warn("Failed to close uploaded file")
			}
		}()

		data, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, models.ErrorPayload{Message: "Failed to read upload"})
			return
		}

		fileURL, err := s.store.SaveFile(data, header.Filename)
		if err != nil {
			s.logger.WithError(err).Error("Failed to store upload")
			s.writeError(w, http.StatusInternalServerError, models.ErrorPayload{Message: "Failed to store upload"})
			return
		}

		metrics.IncrementCounter("uploads_total", nil, "Stored file uploads")
		s.writeJSON(w, http.StatusOK, map[string]string{"fileUrl": fileURL})
	}
}

func (s *Server) handleGetFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["fileId"]

		data, err := s.store.GetFile(key)
		if err != nil {
			s.writeError(w, http.StatusNotFound, models.ErrorPayload{Message: "File not found"})
			return
		}

		contentType := contentTypeForKey(key)
		w.Header().Set("Content-Type", contentType)
		if strings.HasPrefix(contentType, "image/") || contentType == "application/pdf" {
			w.Header().Set("Content-Disposition", "inline")
		} else {
			w.Header().Set("Content-Disposition", "attachment")
		}

		if _, err := w.Write(data); err != nil {
			s.logger.WithError(err).Error("Failed to write file response")
		}
	}
}

func contentTypeForKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		if mimeType, ok := constants.MimeTypes[strings.ToLower(key[idx:])]; ok {
			return mimeType
		}
	}
	return constants.DefaultMimeType
}

// handleWebsocket upgrades the request and runs a push session until the
// connection closes. The remote address is the session's rate-limit identity.
func (s *Server) handleWebsocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.WithError(err).Warn("Websocket upgrade failed")
			return
		}

		session := hub.NewSession(conn, s.hub, httputil.GetClientIP(r), hub.Deps{
			Store:             s.store,
			Limiter:           s.limiter,
			Logger:            s.logger,
			KeepaliveInterval: time.Duration(s.cfg.Delivery.KeepaliveIntervalSec) * time.Second,
		})
		session.Run()
	}
}
