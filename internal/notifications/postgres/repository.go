// Package postgres provides the PostgreSQL implementation of the
// notifications outbox.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/respondnow/respondnow/internal/notifications"
)

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a pending outbox item.
func (r *Repository) Enqueue(ctx context.Context, item *notifications.QueueItem) error {
	query := `
		INSERT INTO notification_outbox
			(incident_identifier, change_type, message, status, attempts, max_attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.IncidentIdentifier,
		item.ChangeType,
		item.Message,
		item.Status,
		item.Attempts,
		item.MaxAttempts,
		item.NextAttemptAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// FetchPending returns due pending items, oldest first. SKIP LOCKED keeps
// overlapping fetches from blocking on each other; the lock only lasts for
// this statement, so not double-delivering relies on the single worker.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*notifications.QueueItem, error) {
	query := `
		SELECT id, incident_identifier, change_type, message, status,
		       attempts, max_attempts, next_attempt_at, last_error,
		       created_at, updated_at, sent_at
		FROM notification_outbox
		WHERE status = 'pending' AND next_attempt_at <= NOW()
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	defer rows.Close()

	items := make([]*notifications.QueueItem, 0)
	for rows.Next() {
		var item notifications.QueueItem
		var lastError *string
		err := rows.Scan(
			&item.ID,
			&item.IncidentIdentifier,
			&item.ChangeType,
			&item.Message,
			&item.Status,
			&item.Attempts,
			&item.MaxAttempts,
			&item.NextAttemptAt,
			&lastError,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		if lastError != nil {
			item.LastError = *lastError
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// MarkAsSent marks an item delivered.
func (r *Repository) MarkAsSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark as sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrItemNotFound
	}
	return nil
}

// MarkAsFailed marks an item terminally failed.
func (r *Repository) MarkAsFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE notification_outbox
		SET status = 'failed', last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, cause.Error())
	if err != nil {
		return fmt.Errorf("mark as failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrItemNotFound
	}
	return nil
}

// MarkForRetry reschedules an item and bumps its attempt counter.
func (r *Repository) MarkForRetry(ctx context.Context, id string, cause error, nextAttempt time.Time) error {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, cause.Error(), nextAttempt)
	if err != nil {
		return fmt.Errorf("mark for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrItemNotFound
	}
	return nil
}
