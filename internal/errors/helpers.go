package errors

import (
	"fmt"
)

// Common error creators for frequent use cases

// NewCacheReadError wraps a failed cache read; always retryable since the
// durable store remains the source of truth.
func NewCacheReadError(key string, err error) *AppError {
	return WrapRetryable(err, ErrCodeCacheRead, "cache read failed").
		WithContext("key", key)
}

// NewCacheWriteError wraps a failed cache write. Not retryable at this layer:
// the caller logs and moves on because the durable write already succeeded.
func NewCacheWriteError(key string, err error) *AppError {
	return Wrap(err, ErrCodeCacheWrite, "cache write failed").
		WithContext("key", key)
}

// NewStoreError wraps a durable-store query failure with operation context.
func NewStoreError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStoreQuery, fmt.Sprintf("store %s failed", operation)).
		WithContext("operation", operation)
}

// NewSerializationError reports a cached payload that failed to decode.
func NewSerializationError(namespace string, err error) *AppError {
	return Wrap(err, ErrCodeSerialization, "payload decode failed").
		WithContext("namespace", namespace)
}

// NewSyncError reports a sync session failure with session context.
func NewSyncError(sessionID string, err error) *AppError {
	return Wrap(err, ErrCodeSyncFailed, "sync session failed").
		WithContext("session_id", sessionID)
}

// NewConflictUnresolvedError reports a conflict no strategy could settle.
func NewConflictUnresolvedError(conflictID string, conflictType string) *AppError {
	return New(ErrCodeConflictUnresolved, "no resolution strategy produced a usable answer").
		WithContext("conflict_id", conflictID).
		WithContext("conflict_type", conflictType)
}

// NewRetryExhaustedError reports a message whose retry budget is spent.
func NewRetryExhaustedError(messageID string, attempts int64) *AppError {
	return New(ErrCodeRetryExhausted, "retry budget exhausted").
		WithContext("message_id", messageID).
		WithContext("attempts", attempts)
}

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field)
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key)
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier)
}
