package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("KVS-TEST-1000", "test message"),
			expected: "[KVS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("KVS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[KVS-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	detailed := ErrInvalidKey.WithDetails("?abc")

	if !errors.Is(detailed, ErrInvalidKey) {
		t.Error("errors.Is should match the same code regardless of details")
	}
	if errors.Is(detailed, ErrNotFound) {
		t.Error("errors.Is should not match a different code")
	}
	if errors.Is(ErrInvalidKey, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("write batch: %w", detailed)
	if !errors.Is(wrapped, ErrInvalidKey) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := ErrBackupFailed.Wrap(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
}

func TestIsDomainError(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ErrSessionLimitReached)

	if !IsDomainError(err, "") {
		t.Error("IsDomainError(err, \"\") = false, want true")
	}
	if !IsDomainError(err, "KVS-SESS-4290") {
		t.Error("IsDomainError(err, code) = false, want true")
	}
	if IsDomainError(errors.New("plain"), "") {
		t.Error("IsDomainError(plain) = true, want false")
	}
	if got := GetErrorCode(err); got != "KVS-SESS-4290" {
		t.Errorf("GetErrorCode() = %q, want KVS-SESS-4290", got)
	}
	if got := GetErrorCode(errors.New("plain")); got != "" {
		t.Errorf("GetErrorCode(plain) = %q, want empty", got)
	}
}
