package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailExists is returned when a signup hits an already-registered
	// email address.
	ErrEmailExists = errors.New("user email already exists")

	ErrUserNotFound = errors.New("user not found")
)

// StoreError wraps a repository round-trip failure. The bootstrap retry
// policy retries transient failures; everywhere else they propagate.
type StoreError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is worth retrying.
func (e *StoreError) IsRetryable() bool { return e.Transient }
