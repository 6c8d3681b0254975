//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/respondnow/respondnow/internal/notifications"
	notificationspostgres "github.com/respondnow/respondnow/internal/notifications/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueTestItem(t *testing.T, repo *notificationspostgres.Repository, nextAttempt time.Time) *notifications.QueueItem {
	t.Helper()
	item := &notifications.QueueItem{
		IncidentIdentifier: "1700000000-outbox-test",
		ChangeType:         "STATUS",
		Message:            "Incident **outbox-test** status changed",
		Status:             notifications.QueueStatusPending,
		MaxAttempts:        3,
		NextAttemptAt:      nextAttempt,
	}
	require.NoError(t, repo.Enqueue(context.Background(), item))
	require.NotEmpty(t, item.ID)
	return item
}

func TestNotificationOutbox_EnqueueAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := notificationspostgres.NewRepository(testDB)

	due := enqueueTestItem(t, repo, time.Now().Add(-time.Minute))
	notDue := enqueueTestItem(t, repo, time.Now().Add(time.Hour))

	items, err := repo.FetchPending(ctx, 100)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, it := range items {
		ids[it.ID] = true
	}
	assert.True(t, ids[due.ID], "due item is fetched")
	assert.False(t, ids[notDue.ID], "future item stays queued")
}

func TestNotificationOutbox_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	repo := notificationspostgres.NewRepository(testDB)

	item := enqueueTestItem(t, repo, time.Now().Add(-time.Minute))

	// Retry bumps the attempt counter and reschedules.
	next := time.Now().Add(30 * time.Second)
	require.NoError(t, repo.MarkForRetry(ctx, item.ID, errors.New("rate limited"), next))

	var attempts int
	var lastError string
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT attempts, last_error FROM notification_outbox WHERE id = $1`, item.ID,
	).Scan(&attempts, &lastError))
	assert.Equal(t, 1, attempts)
	assert.Contains(t, lastError, "rate limited")

	// Terminal transitions.
	require.NoError(t, repo.MarkAsSent(ctx, item.ID))

	var status string
	var sentAt *time.Time
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT status, sent_at FROM notification_outbox WHERE id = $1`, item.ID,
	).Scan(&status, &sentAt))
	assert.Equal(t, string(notifications.QueueStatusSent), status)
	assert.NotNil(t, sentAt)

	failed := enqueueTestItem(t, repo, time.Now().Add(-time.Minute))
	require.NoError(t, repo.MarkAsFailed(ctx, failed.ID, errors.New("webhook not found")))

	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT status FROM notification_outbox WHERE id = $1`, failed.ID,
	).Scan(&status))
	assert.Equal(t, string(notifications.QueueStatusFailed), status)
}

func TestNotificationOutbox_UnknownItem(t *testing.T) {
	ctx := context.Background()
	repo := notificationspostgres.NewRepository(testDB)

	err := repo.MarkAsSent(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, notifications.ErrItemNotFound)
}
