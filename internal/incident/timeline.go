package incident

import (
	"github.com/google/uuid"
	"github.com/respondnow/respondnow/internal/domain"
)

// EntryInput holds everything needed to build one timeline entry.
type EntryInput struct {
	Type          domain.ChangeType
	PreviousState string
	CurrentState  string
	Actor         domain.UserDetails
	Message       string
	Channel       *domain.ChannelDetail
	Extra         any
	Timestamp     int64
}

// NewTimelineEntry builds an immutable audit entry for a mutation. It is the
// single construction point for timeline entries so every mutation path
// produces structurally identical records.
func NewTimelineEntry(in EntryInput) domain.TimelineEntry {
	return domain.TimelineEntry{
		ID:                uuid.New().String(),
		Type:              in.Type,
		CreatedAt:         in.Timestamp,
		UpdatedAt:         in.Timestamp,
		PreviousState:     in.PreviousState,
		CurrentState:      in.CurrentState,
		Channel:           in.Channel,
		UserDetails:       in.Actor,
		Message:           in.Message,
		AdditionalDetails: in.Extra,
	}
}
