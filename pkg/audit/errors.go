package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("audit store closed")

	// ErrRecorderClosed indicates an event arrived after recorder shutdown.
	ErrRecorderClosed = errors.New("audit recorder closed")
)

// StoreError wraps a storage failure for one event.
type StoreError struct {
	EventID string
	Cause   error
}

// Error returns the error message.
func (e *StoreError) Error() string {
	return fmt.Sprintf("audit store failed for event %s: %v", e.EventID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}
