package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, ErrCodeInternalError, "failed to write attachment")

	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestGetCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrCodeInternalError, GetCode(fmt.Errorf("plain error")))
	assert.Equal(t, ErrCodeNotFound, GetCode(NewNotFoundError("message", "42")))
}

func TestRateLimitErrorIsRetryableAdvisory(t *testing.T) {
	err := NewRateLimitError("Please wait before sending another message")

	assert.True(t, IsRateLimited(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "Please wait before sending another message", GetUserMessage(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("file", "abc.png")))
	assert.False(t, IsNotFound(NewValidationError("content", "content is required")))
	assert.False(t, IsNotFound(errors.New("something else")))
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := NewValidationError("senderName", "sender name is required")

	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Equal(t, "senderName", err.Context["field"])
	assert.False(t, IsRetryable(err))
}

func TestTransportErrorRetryable(t *testing.T) {
	err := NewTransportError("dial", errors.New("connection refused"))

	assert.Equal(t, ErrCodeTransport, err.Code)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "connection refused")
}
