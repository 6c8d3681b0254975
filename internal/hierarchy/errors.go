package hierarchy

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrUserMappingNotFound  = errors.New("no mappings found for the user")

	// ErrIdentifierExists is returned when the business identifier is
	// already taken within its scope.
	ErrIdentifierExists = errors.New("identifier already exists")
)

// StoreError wraps a storage failure. Transient failures are safe to retry.
type StoreError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is transient.
func (e *StoreError) IsRetryable() bool { return e.Transient }
