// Package validation shape-checks inbound message payloads against the known
// draft fields before anything touches the store.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"chatwire/internal/constants"
	"chatwire/internal/errors"
	"chatwire/internal/models"
)

// ParseDraft decodes a raw payload into a MessageDraft, rejecting unknown
// fields and enforcing the required-field and length rules. Validation errors
// are reported to the offending sender only; they are never fatal to a
// connection.
func ParseDraft(raw []byte) (models.MessageDraft, error) {
	var draft models.MessageDraft

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		return models.MessageDraft{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed message payload").
			WithUserMessage("Invalid message format")
	}

	if err := ValidateDraft(&draft); err != nil {
		return models.MessageDraft{}, err
	}

	return draft, nil
}

// ValidateDraft checks an already-decoded draft.
func ValidateDraft(draft *models.MessageDraft) error {
	if draft.Content == "" {
		return errors.NewValidationError("content", "content is required")
	}

	if utf8.RuneCountInString(draft.Content) > constants.MaxContentLength {
		return errors.NewValidationError("content",
			fmt.Sprintf("content too long (max %d characters)", constants.MaxContentLength))
	}

	if draft.SenderName == "" {
		return errors.NewValidationError("senderName", "sender name is required")
	}

	if utf8.RuneCountInString(draft.SenderName) > constants.MaxSenderNameLength {
		return errors.NewValidationError("senderName",
			fmt.Sprintf("sender name too long (max %d characters)", constants.MaxSenderNameLength))
	}

	if draft.FileSize != nil && *draft.FileSize < 0 {
		return errors.NewValidationError("fileSize", "file size cannot be negative")
	}

	if draft.ReplyToID != nil && *draft.ReplyToID <= 0 {
		return errors.NewValidationError("replyToId", "reply target id must be positive")
	}

	return nil
}
