package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{ErrNetwork, true},
		{fmt.Errorf("wrapped: %w", ErrNetwork), true},
		{ErrAuth, false},
		{ErrQuota, false},
		{ErrParse, false},
		{errors.New("unrelated"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestTaskErrorUnwrap(t *testing.T) {
	err := NewTaskError("google", "env-exposure", 3, ErrRateLimited)

	if !errors.Is(err, ErrRateLimited) {
		t.Error("TaskError must unwrap to its cause")
	}
	msg := err.Error()
	if msg == "" || !errors.As(error(err), new(*TaskError)) {
		t.Errorf("unexpected error shape: %q", msg)
	}
}
