package notifications

import (
	"context"
	"testing"

	"github.com/respondnow/respondnow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_IncidentChanged(t *testing.T) {
	repo := &fakeRepo{}
	outbox := NewOutbox(repo)

	inc := &domain.Incident{
		Identifier: "1700000000-api-down",
		Name:       "API down",
		Severity:   domain.SeveritySev1,
		Status:     domain.StatusStarted,
		Summary:    "All requests failing",
	}

	err := outbox.IncidentChanged(context.Background(), inc, domain.ChangeCreated)
	require.NoError(t, err)

	require.Len(t, repo.pending, 1)
	item := repo.pending[0]

	assert.Equal(t, "1700000000-api-down", item.IncidentIdentifier)
	assert.Equal(t, string(domain.ChangeCreated), item.ChangeType)
	assert.Equal(t, QueueStatusPending, item.Status)
	assert.Equal(t, 3, item.MaxAttempts)
	assert.Zero(t, item.Attempts)
	assert.False(t, item.NextAttemptAt.IsZero())
	assert.Contains(t, item.Message, "New incident")
	assert.Contains(t, item.Message, "**API down**")
}

func TestRenderMessage(t *testing.T) {
	inc := &domain.Incident{
		Identifier: "1700000000-api-down",
		Name:       "API down",
		Severity:   domain.SeveritySev1,
		Status:     domain.StatusResolved,
		Summary:    "All requests failing",
	}

	tests := []struct {
		name     string
		change   domain.ChangeType
		contains string
	}{
		{"created", domain.ChangeCreated, ":rotating_light: New incident: **API down**"},
		{"status", domain.ChangeStatus, "status changed to **RESOLVED**"},
		{"severity", domain.ChangeSeverity, "severity changed to **SEV1**"},
		{"summary", domain.ChangeSummary, "summary updated"},
		{"comment", domain.ChangeComment, "New comment on incident"},
		{"roles", domain.ChangeRoles, "role assignments changed"},
		{"fallback", domain.ChangeChannelCreated, "**API down** updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := renderMessage(inc, tt.change)
			assert.Contains(t, msg, tt.contains)
			assert.Contains(t, msg, "Severity: SEV1 | Status: RESOLVED")
			assert.Contains(t, msg, "All requests failing")
		})
	}
}

func TestRenderMessage_FallsBackToIdentifier(t *testing.T) {
	inc := &domain.Incident{
		Identifier: "1700000000-api-down",
		Severity:   domain.SeveritySev2,
		Status:     domain.StatusStarted,
	}

	msg := renderMessage(inc, domain.ChangeCreated)
	assert.Contains(t, msg, "**1700000000-api-down**")
	assert.NotContains(t, msg, "All requests failing")
}
