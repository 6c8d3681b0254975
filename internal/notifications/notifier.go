package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/respondnow/respondnow/internal/domain"
)

const defaultMaxAttempts = 3

// Outbox enqueues incident changes for asynchronous delivery. It implements
// the lifecycle service's Notifier interface.
type Outbox struct {
	repo        Repository
	maxAttempts int
}

// NewOutbox creates a new outbox notifier.
func NewOutbox(repo Repository) *Outbox {
	return &Outbox{repo: repo, maxAttempts: defaultMaxAttempts}
}

// IncidentChanged renders the change into a chat message and enqueues it.
func (o *Outbox) IncidentChanged(ctx context.Context, inc *domain.Incident, change domain.ChangeType) error {
	now := time.Now()
	item := &QueueItem{
		IncidentIdentifier: inc.Identifier,
		ChangeType:         string(change),
		Message:            renderMessage(inc, change),
		Status:             QueueStatusPending,
		MaxAttempts:        o.maxAttempts,
		NextAttemptAt:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return o.repo.Enqueue(ctx, item)
}

// renderMessage builds a markdown chat message for the change.
func renderMessage(inc *domain.Incident, change domain.ChangeType) string {
	var b strings.Builder

	title := inc.Name
	if title == "" {
		title = inc.Identifier
	}

	switch change {
	case domain.ChangeCreated:
		fmt.Fprintf(&b, ":rotating_light: New incident: **%s**\n", title)
	case domain.ChangeStatus:
		fmt.Fprintf(&b, "Incident **%s** status changed to **%s**\n", title, inc.Status)
	case domain.ChangeSeverity:
		fmt.Fprintf(&b, "Incident **%s** severity changed to **%s**\n", title, inc.Severity)
	case domain.ChangeSummary:
		fmt.Fprintf(&b, "Incident **%s** summary updated\n", title)
	case domain.ChangeComment:
		fmt.Fprintf(&b, "New comment on incident **%s**\n", title)
	case domain.ChangeRoles:
		fmt.Fprintf(&b, "Incident **%s** role assignments changed\n", title)
	default:
		fmt.Fprintf(&b, "Incident **%s** updated\n", title)
	}

	fmt.Fprintf(&b, "Severity: %s | Status: %s", inc.Severity, inc.Status)
	if inc.Summary != "" {
		fmt.Fprintf(&b, "\n%s", inc.Summary)
	}
	return b.String()
}
