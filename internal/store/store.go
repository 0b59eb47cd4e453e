// Package store holds the in-memory message collection and the on-disk blob
// store for uploaded attachments. Messages get a monotonically increasing id
// and an immutable timestamp at creation; they are never updated or deleted.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"chatwire/internal/errors"
	"chatwire/internal/models"
	"chatwire/internal/security"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MessageStore is the persistence contract used by the session handlers and
// the HTTP surface.
type MessageStore interface {
	CreateMessage(draft models.MessageDraft) models.Message
	GetMessages() []models.Message
	GetMessage(id int64) (models.Message, error)
	SaveFile(data []byte, originalName string) (string, error)
	GetFile(key string) ([]byte, error)
}

// MemStore is the in-memory MessageStore implementation. Attachments live on
// disk under uploadDir keyed by unguessable names; everything else is held in
// process memory and lost on restart.
type MemStore struct {
	mu        sync.RWMutex
	messages  map[int64]models.Message
	nextID    int64
	uploadDir string
	clock     func() time.Time
	logger    *logrus.Logger
}

// Option configures a MemStore.
type Option func(*MemStore)

// WithClock overrides the timestamp source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore) {
		s.clock = clock
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *MemStore) {
		s.logger = logger
	}
}

// NewMemStore creates a MemStore writing attachments under uploadDir. The
// directory is created if missing.
func NewMemStore(uploadDir string, opts ...Option) (*MemStore, error) {
	s := &MemStore{
		messages:  make(map[int64]models.Message),
		nextID:    1,
		uploadDir: uploadDir,
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetLevel(logrus.WarnLevel)
	}

	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return s, nil
}

// CreateMessage assigns the next id, fills the timestamp when the draft has
// none, and stores the result. It never fails; validation happens upstream.
func (s *MemStore) CreateMessage(draft models.MessageDraft) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.clock()
	if draft.Timestamp != nil {
		ts = *draft.Timestamp
	}

	msg := models.Message{
		ID:         s.nextID,
		Content:    draft.Content,
		SenderName: draft.SenderName,
		Timestamp:  ts,

		FileName: draft.FileName,
		FileSize: draft.FileSize,
		FileType: draft.FileType,
		FileURL:  draft.FileURL,

		ReplyToID:      draft.ReplyToID,
		ReplyToContent: draft.ReplyToContent,
		ReplyToSender:  draft.ReplyToSender,
	}

	s.messages[msg.ID] = msg
	s.nextID++

	return msg
}

// GetMessages returns all messages ordered ascending by timestamp. Ties are
// broken by id so the order is deterministic.
func (s *MemStore) GetMessages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		result = append(result, msg)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].ID < result[j].ID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result
}

// GetMessage returns the message with the given id.
func (s *MemStore) GetMessage(id int64) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return models.Message{}, errors.NewNotFoundError("message", fmt.Sprintf("%d", id))
	}
	return msg, nil
}

// SaveFile stores an uploaded attachment under a random unguessable key and
// returns the retrieval URL. The original name contributes only a sanitized
// extension so content-type inference keeps working on the way back out.
func (s *MemStore) SaveFile(data []byte, originalName string) (string, error) {
	key := strings.ReplaceAll(uuid.New().String(), "-", "") + security.SanitizeExtension(originalName)

	path := filepath.Join(s.uploadDir, key)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to write attachment")
	}

	s.logger.WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Debug("Attachment stored")

	return "/api/files/" + key, nil
}

// GetFile returns the bytes stored under key. The key is validated against
// traversal before it touches the filesystem.
func (s *MemStore) GetFile(key string) ([]byte, error) {
	if err := security.ValidateBlobKey(key); err != nil {
		return nil, errors.NewNotFoundError("file", key)
	}

	data, err := os.ReadFile(filepath.Join(s.uploadDir, key)) // #nosec G304 - key validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("file", key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to read attachment")
	}

	return data, nil
}
