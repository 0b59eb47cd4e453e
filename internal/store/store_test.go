package store

import (
	"fmt"
	"testing"
	"time"

	"chatwire/internal/errors"
	"chatwire/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *MemStore {
	t.Helper()
	s, err := NewMemStore(t.TempDir(), opts...)
	require.NoError(t, err)
	return s
}

func TestCreateMessageAssignsIncreasingIDs(t *testing.T) {
	s := newTestStore(t)

	var lastID int64
	for i := 0; i < 50; i++ {
		msg := s.CreateMessage(models.MessageDraft{
			Content:    fmt.Sprintf("message %d", i),
			SenderName: "tester",
		})
		assert.Greater(t, msg.ID, lastID, "ids must be strictly increasing")
		lastID = msg.ID
	}

	assert.Equal(t, int64(1), s.GetMessages()[0].ID, "ids start at 1")
}

func TestCreateMessageTimestampDefaults(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return fixed }))

	msg := s.CreateMessage(models.MessageDraft{Content: "hi", SenderName: "a"})
	assert.Equal(t, fixed, msg.Timestamp)

	explicit := fixed.Add(-time.Hour)
	msg = s.CreateMessage(models.MessageDraft{Content: "hi", SenderName: "a", Timestamp: &explicit})
	assert.Equal(t, explicit, msg.Timestamp)
}

func TestCreateMessageOptionalFieldsStayAbsent(t *testing.T) {
	s := newTestStore(t)

	msg := s.CreateMessage(models.MessageDraft{Content: "plain", SenderName: "a"})
	assert.Nil(t, msg.FileName)
	assert.Nil(t, msg.FileSize)
	assert.Nil(t, msg.FileType)
	assert.Nil(t, msg.FileURL)
	assert.Nil(t, msg.ReplyToID)
	assert.Nil(t, msg.ReplyToContent)
	assert.Nil(t, msg.ReplyToSender)
}

func TestGetMessagesSortedByTimestamp(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := base.Add(time.Hour)
	earlier := base.Add(-time.Hour)

	// Insert out of chronological order.
	s.CreateMessage(models.MessageDraft{Content: "second", SenderName: "a", Timestamp: &later})
	s.CreateMessage(models.MessageDraft{Content: "first", SenderName: "a", Timestamp: &earlier})
	s.CreateMessage(models.MessageDraft{Content: "middle", SenderName: "a", Timestamp: &base})

	msgs := s.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "middle", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
}

func TestGetMessagesTieBrokenByID(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return fixed }))

	a := s.CreateMessage(models.MessageDraft{Content: "a", SenderName: "x"})
	b := s.CreateMessage(models.MessageDraft{Content: "b", SenderName: "x"})

	msgs := s.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, a.ID, msgs[0].ID)
	assert.Equal(t, b.ID, msgs[1].ID)
}

func TestGetMessage(t *testing.T) {
	s := newTestStore(t)

	created := s.CreateMessage(models.MessageDraft{Content: "hi", SenderName: "a"})

	got, err := s.GetMessage(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.GetMessage(9999)
	assert.True(t, errors.IsNotFound(err))
}

func TestReplySnapshotIsImmutable(t *testing.T) {
	s := newTestStore(t)

	original := s.CreateMessage(models.MessageDraft{Content: "original text", SenderName: "Alice"})

	reply := s.CreateMessage(models.MessageDraft{
		Content:        "replying",
		SenderName:     "Bob",
		ReplyToID:      models.Int64Ptr(original.ID),
		ReplyToContent: models.StringPtr(original.Content),
		ReplyToSender:  models.StringPtr(original.SenderName),
	})

	// The snapshot is a copy; nothing the caller does to its own draft or to
	// the returned records reaches the stored reply.
	original.Content = "mutated"

	stored, err := s.GetMessage(reply.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReplyToContent)
	assert.Equal(t, "original text", *stored.ReplyToContent)
	require.NotNil(t, stored.ReplyToSender)
	assert.Equal(t, "Alice", *stored.ReplyToSender)
}

func TestSaveAndGetFile(t *testing.T) {
	s := newTestStore(t)

	data := []byte("attachment bytes")
	fileURL, err := s.SaveFile(data, "report.pdf")
	require.NoError(t, err)
	assert.Contains(t, fileURL, "/api/files/")

	key := fileURL[len("/api/files/"):]
	assert.NotContains(t, key, "..")
	assert.NotContains(t, key, "/")
	assert.Contains(t, key, ".pdf")

	got, err := s.GetFile(key)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveFileKeysAreUnique(t *testing.T) {
	s := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		fileURL, err := s.SaveFile([]byte("x"), "a.txt")
		require.NoError(t, err)
		assert.False(t, seen[fileURL], "duplicate blob key")
		seen[fileURL] = true
	}
}

func TestGetFileRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"../../etc/passwd", "a/b", "..", ""} {
		_, err := s.GetFile(key)
		assert.True(t, errors.IsNotFound(err), "key %q must not resolve", key)
	}
}

func TestGetFileMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetFile("deadbeefdeadbeef.png")
	assert.True(t, errors.IsNotFound(err))
}

func TestSeedWelcomeMessages(t *testing.T) {
	s := newTestStore(t)
	SeedWelcomeMessages(s)

	msgs := s.GetMessages()
	require.Len(t, msgs, 3)

	// Seeds are backdated, so chronological order differs from id order.
	assert.Equal(t, "Привет всем! Как дела?", msgs[0].Content)
	assert.Equal(t, "У меня всё хорошо! Классный чат!", msgs[1].Content)
	assert.Equal(t, "Добро пожаловать в чат!", msgs[2].Content)

	reply := msgs[1]
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, int64(1), *reply.ReplyToID)
	require.NotNil(t, reply.ReplyToSender)
	assert.Equal(t, "Система", *reply.ReplyToSender)
}
