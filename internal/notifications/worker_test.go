package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/respondnow/respondnow/internal/notifications/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	pending []*QueueItem

	sent    []string
	failed  []string
	retried []string

	nextAttempts []time.Time
}

func (r *fakeRepo) Enqueue(_ context.Context, item *QueueItem) error {
	r.pending = append(r.pending, item)
	return nil
}

func (r *fakeRepo) FetchPending(_ context.Context, limit int) ([]*QueueItem, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeRepo) MarkAsSent(_ context.Context, id string) error {
	r.sent = append(r.sent, id)
	return nil
}

func (r *fakeRepo) MarkAsFailed(_ context.Context, id string, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeRepo) MarkForRetry(_ context.Context, id string, _ error, nextAttempt time.Time) error {
	r.retried = append(r.retried, id)
	r.nextAttempts = append(r.nextAttempts, nextAttempt)
	return nil
}

type fakeSender struct {
	err   error
	texts []string
}

func (s *fakeSender) Send(_ context.Context, text string) error {
	s.texts = append(s.texts, text)
	return s.err
}

func newTestWorker(repo *fakeRepo, sender Sender) *Worker {
	return NewWorker(DefaultWorkerConfig(), repo, sender)
}

func TestWorker_ProcessItem_Success(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{}
	w := newTestWorker(repo, sender)

	w.processItem(context.Background(), &QueueItem{ID: "q1", Message: "hello", MaxAttempts: 3})

	assert.Equal(t, []string{"hello"}, sender.texts)
	assert.Equal(t, []string{"q1"}, repo.sent)
	assert.Empty(t, repo.failed)
	assert.Empty(t, repo.retried)
}

func TestWorker_ProcessItem_RetryableError(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{err: &webhook.RetryableError{Code: 503, Message: "server error"}}
	w := newTestWorker(repo, sender)

	w.processItem(context.Background(), &QueueItem{ID: "q1", Message: "hello", Attempts: 0, MaxAttempts: 3})

	assert.Equal(t, []string{"q1"}, repo.retried)
	assert.Empty(t, repo.failed)
	require.Len(t, repo.nextAttempts, 1)
	assert.True(t, repo.nextAttempts[0].After(time.Now()))
}

func TestWorker_ProcessItem_PermanentError(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{err: &webhook.PermanentError{Code: 404, Message: "webhook not found"}}
	w := newTestWorker(repo, sender)

	w.processItem(context.Background(), &QueueItem{ID: "q1", Message: "hello", MaxAttempts: 3})

	assert.Equal(t, []string{"q1"}, repo.failed)
	assert.Empty(t, repo.retried)
}

func TestWorker_ProcessItem_MaxAttemptsExceeded(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeSender{err: &webhook.RetryableError{Code: 500, Message: "server error"}}
	w := newTestWorker(repo, sender)

	w.processItem(context.Background(), &QueueItem{ID: "q1", Message: "hello", Attempts: 2, MaxAttempts: 3})

	assert.Equal(t, []string{"q1"}, repo.failed)
	assert.Empty(t, repo.retried)
}

func TestWorker_CalculateNextAttempt(t *testing.T) {
	w := &Worker{config: WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
	}}

	tests := []struct {
		name            string
		attempt         int
		expectedBackoff time.Duration
	}{
		{"first retry", 1, 1 * time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fourth retry", 4, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			result := w.calculateNextAttempt(tt.attempt)
			after := time.Now()

			assert.False(t, result.Before(before.Add(tt.expectedBackoff)))
			assert.False(t, result.After(after.Add(tt.expectedBackoff)))
		})
	}
}

func TestWorker_CalculateNextAttempt_Capped(t *testing.T) {
	w := &Worker{config: WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}}

	result := w.calculateNextAttempt(100)
	assert.True(t, result.Before(time.Now().Add(11*time.Second)))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable webhook error", &webhook.RetryableError{Code: 500}, true},
		{"permanent webhook error", &webhook.PermanentError{Code: 400}, false},
		{"unknown error", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}
