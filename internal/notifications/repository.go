// Package notifications delivers incident change messages to a chat webhook
// through a persistent outbox.
package notifications

import (
	"context"
	"errors"
	"time"
)

// ErrItemNotFound is returned when a queue item does not exist.
var ErrItemNotFound = errors.New("queue item not found")

// Repository defines outbox data access.
type Repository interface {
	// Enqueue inserts a pending item.
	Enqueue(ctx context.Context, item *QueueItem) error
	// FetchPending returns due pending items, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*QueueItem, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, cause error) error
	MarkForRetry(ctx context.Context, id string, cause error, nextAttempt time.Time) error
}
