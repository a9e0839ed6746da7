package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form KVS-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "KVS-STOR-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Storage errors (STOR).
var (
	// ErrNotInitialized indicates the table does not exist or was torn down.
	ErrNotInitialized = NewDomainError("KVS-STOR-5000", "store not initialized")

	// ErrInvalidKey indicates a key that cannot be routed to a shard.
	ErrInvalidKey = NewDomainError("KVS-STOR-4000", "invalid key")

	// ErrNotFound indicates a read or delete of an absent key.
	ErrNotFound = NewDomainError("KVS-STOR-4040", "key not found")
)

// Session errors (SESS).
var (
	// ErrSessionLimitReached indicates the registry is full.
	ErrSessionLimitReached = NewDomainError("KVS-SESS-4290", "session limit reached")

	// ErrUnknownSession indicates a request from an unregistered client.
	ErrUnknownSession = NewDomainError("KVS-SESS-4040", "unknown session")

	// ErrAlreadySubscribed indicates a duplicate subscription.
	ErrAlreadySubscribed = NewDomainError("KVS-SESS-4091", "already subscribed")

	// ErrNotSubscribed indicates an unsubscribe of a key that was never subscribed.
	ErrNotSubscribed = NewDomainError("KVS-SESS-4092", "not subscribed")

	// ErrSubscriptionLimit indicates the session's subscription set is full.
	ErrSubscriptionLimit = NewDomainError("KVS-SESS-4293", "subscription limit reached")
)

// Job errors (JOBS).
var (
	// ErrMalformedCommand indicates a job line that could not be parsed.
	ErrMalformedCommand = NewDomainError("KVS-JOBS-4000", "invalid command, see HELP for usage")

	// ErrInvalidTransition indicates an illegal job state change.
	ErrInvalidTransition = NewDomainError("KVS-JOBS-4090", "invalid job state transition")
)

// Backup errors (BKUP).
var (
	// ErrBackupFailed indicates a snapshot could not be written.
	ErrBackupFailed = NewDomainError("KVS-BKUP-5000", "backup failed")
)

// Channel errors (CHAN).
var (
	// ErrChannel indicates an I/O failure on a client channel.
	ErrChannel = NewDomainError("KVS-CHAN-5000", "client channel error")

	// ErrMalformedRequest indicates a protocol message that could not be decoded.
	ErrMalformedRequest = NewDomainError("KVS-CHAN-4000", "malformed request")
)
