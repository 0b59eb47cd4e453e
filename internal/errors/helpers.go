package errors

import (
	"fmt"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewRateLimitError creates a cooldown advisory error. The user message is
// the text surfaced to the sender alongside the cooldown flag.
func NewRateLimitError(waitMessage string) *AppError {
	appErr := New(ErrCodeRateLimit, "rate limit exceeded").
		WithUserMessage(waitMessage)
	appErr.Retryable = true
	return appErr
}

// NewTransportError wraps a connection-level failure. Transport errors tear
// down the session on the server and trigger reconnect on the client; they
// never crash the process.
func NewTransportError(operation string, err error) *AppError {
	appErr := Wrap(err, ErrCodeTransport, fmt.Sprintf("transport %s failed", operation)).
		WithContext("operation", operation)
	appErr.Retryable = true
	return appErr
}

// NewUpstreamUnavailableError reports a failed server reachability probe.
func NewUpstreamUnavailableError(endpoint string, err error) *AppError {
	appErr := Wrap(err, ErrCodeUpstreamUnavailable, "server unreachable").
		WithContext("endpoint", endpoint).
		WithUserMessage("Chat server is unreachable")
	appErr.Retryable = true
	return appErr
}

// IsNotFound reports whether err is a NOT_FOUND application error.
func IsNotFound(err error) bool {
	return GetCode(err) == ErrCodeNotFound
}

// IsRateLimited reports whether err is a RATE_LIMIT application error.
func IsRateLimited(err error) bool {
	return GetCode(err) == ErrCodeRateLimit
}
