package errors

import (
	"errors"
	"fmt"
)

// Task-scoped provider errors. Every provider implementation maps its native
// failures onto one of these sentinels before returning; callers never see a
// backend-specific error type.
var (
	ErrAuth        = errors.New("authentication failed")
	ErrQuota       = errors.New("quota exceeded")
	ErrRateLimited = errors.New("rate limited")
	ErrNetwork     = errors.New("network error")
	ErrParse       = errors.New("response parse error")
)

// Invocation-fatal errors.
var (
	ErrProviderUnavailable = errors.New("no usable provider available")
	ErrProviderNotFound    = errors.New("provider not configured")
)

// Retryable reports whether a task error is worth retrying. Soft rate limits
// and network failures recover on their own; auth, hard quota and parse
// failures do not.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// TaskError records the failure of a single (engine, dork) task after its
// retry budget was exhausted. Tasks fail in isolation; the batch continues.
type TaskError struct {
	Engine   string
	DorkID   string
	Attempts int
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s/%s failed after %d attempt(s): %v", e.Engine, e.DorkID, e.Attempts, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func NewTaskError(engine, dorkID string, attempts int, err error) *TaskError {
	return &TaskError{
		Engine:   engine,
		DorkID:   dorkID,
		Attempts: attempts,
		Err:      err,
	}
}

// ValidationError rejects a whole catalog load. Partially valid catalogs are
// never trimmed down, so downstream category counts stay trustworthy.
type ValidationError struct {
	Entry   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("catalog validation failed: %s", e.Message)
	}
	return fmt.Sprintf("catalog validation failed for entry %q, field %q: %s", e.Entry, e.Field, e.Message)
}

func NewValidationError(entry, field, message string) *ValidationError {
	return &ValidationError{
		Entry:   entry,
		Field:   field,
		Message: message,
	}
}

// ConfigError signals missing or invalid provider configuration. Fatal to the
// invocation, surfaced immediately, never retried.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
