package validation

import (
	"strings"
	"testing"

	"chatwire/internal/errors"
	"chatwire/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraftValid(t *testing.T) {
	draft, err := ParseDraft([]byte(`{"content":"hi","senderName":"Alice"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", draft.Content)
	assert.Equal(t, "Alice", draft.SenderName)
	assert.Nil(t, draft.Timestamp)
	assert.Nil(t, draft.FileURL)
}

func TestParseDraftWithAttachmentAndReply(t *testing.T) {
	payload := `{
		"content": "see attached",
		"senderName": "Bob",
		"fileName": "cat.png",
		"fileSize": 1234,
		"fileType": "image/png",
		"fileUrl": "/api/files/abc.png",
		"replyToId": 3,
		"replyToContent": "original",
		"replyToSender": "Alice"
	}`

	draft, err := ParseDraft([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, draft.FileSize)
	assert.Equal(t, int64(1234), *draft.FileSize)
	require.NotNil(t, draft.ReplyToID)
	assert.Equal(t, int64(3), *draft.ReplyToID)
}

func TestParseDraftOptionalTimestamp(t *testing.T) {
	draft, err := ParseDraft([]byte(`{"content":"hi","senderName":"a","timestamp":"2025-06-01T12:00:00Z"}`))
	require.NoError(t, err)
	require.NotNil(t, draft.Timestamp)
	assert.Equal(t, 2025, draft.Timestamp.Year())
}

func TestParseDraftRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		code    errors.ErrorCode
	}{
		{"not json", `"plain string"`, errors.ErrCodeInvalidInput},
		{"unknown field", `{"content":"hi","senderName":"a","admin":true}`, errors.ErrCodeInvalidInput},
		{"bad timestamp", `{"content":"hi","senderName":"a","timestamp":"yesterday"}`, errors.ErrCodeInvalidInput},
		{"missing content", `{"senderName":"a"}`, errors.ErrCodeValidationFailed},
		{"empty content", `{"content":"","senderName":"a"}`, errors.ErrCodeValidationFailed},
		{"missing sender", `{"content":"hi"}`, errors.ErrCodeValidationFailed},
		{"negative file size", `{"content":"hi","senderName":"a","fileSize":-1}`, errors.ErrCodeValidationFailed},
		{"zero reply id", `{"content":"hi","senderName":"a","replyToId":0}`, errors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDraft([]byte(tt.payload))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestValidateDraftLengthLimits(t *testing.T) {
	draft := &models.MessageDraft{
		Content:    strings.Repeat("x", 4001),
		SenderName: "a",
	}
	assert.Error(t, ValidateDraft(draft))

	draft = &models.MessageDraft{
		Content:    "hi",
		SenderName: strings.Repeat("n", 101),
	}
	assert.Error(t, ValidateDraft(draft))
}
