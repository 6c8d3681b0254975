package incident

import (
	"errors"
	"fmt"
)

var (
	// ErrIncidentNotFound is returned when no incident matches the given
	// identifier or internal id.
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrNoRoleChanges is returned when a role update request reconciles to
	// an empty diff.
	ErrNoRoleChanges = errors.New("no roles were updated")

	// ErrMissingChannels is returned when a create request carries an
	// incident-channel binding but no channel list, so the channel
	// association timeline entry cannot be built.
	ErrMissingChannels = errors.New("incident channel provided without channels")

	// ErrVersionConflict is returned when a targeted field update loses the
	// compare-and-swap against a concurrent writer.
	ErrVersionConflict = errors.New("incident modified concurrently")

	// ErrTimelineEntryNotFound is returned by the administrative timeline
	// correction path.
	ErrTimelineEntryNotFound = errors.New("timeline entry not found")
)

// ValidationError reports a missing or invalid required field. It is never
// retried and maps to a client error at outer layers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid incident: %s %s", e.Field, e.Reason)
}

// StoreError wraps a store round-trip failure. Transient failures are retried
// only by the bootstrap retry policy; everywhere else they propagate.
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
