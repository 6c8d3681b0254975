package notifications

import "time"

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

// QueueItem is one outbox row: a rendered incident change waiting for
// delivery to the chat webhook.
type QueueItem struct {
	ID                 string
	IncidentIdentifier string
	ChangeType         string
	Message            string
	Status             QueueStatus
	Attempts           int
	MaxAttempts        int
	NextAttemptAt      time.Time
	LastError          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	SentAt             *time.Time
}
