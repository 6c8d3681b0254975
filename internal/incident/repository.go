package incident

import (
	"context"

	"github.com/respondnow/respondnow/internal/domain"
)

// Store defines the incident document collection contract. Implementations
// must provide per-document atomic field updates and id-based lookup; nothing
// here assumes multi-document transactions except BulkProcess, which is
// all-or-nothing inside the store.
type Store interface {
	// Insert persists a new incident and assigns its internal id.
	Insert(ctx context.Context, inc *domain.Incident) (*domain.Incident, error)

	// FindByIdentifier looks up an incident by its business key.
	// Returns ErrIncidentNotFound if absent.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Incident, error)

	// FindByID looks up an incident by its internal id.
	// Returns ErrIncidentNotFound if absent.
	FindByID(ctx context.Context, id string) (*domain.Incident, error)

	// List returns incidents matching the filters with skip/limit paging.
	List(ctx context.Context, filters ListFilters) ([]*domain.Incident, error)

	// Count returns the number of incidents matching the filters.
	Count(ctx context.Context, filters ListFilters) (int64, error)

	// UpdateFields applies a targeted update: only the named fields are
	// written, all others stay untouched. The write succeeds only if the
	// stored version equals expectedVersion; the version is incremented as
	// part of the same write. Returns ErrVersionConflict on a lost race and
	// ErrIncidentNotFound if the document is gone.
	UpdateFields(ctx context.Context, id string, expectedVersion int64, fields FieldSet) error

	// BulkProcess inserts every incident in creates and applies a targeted
	// update per element of updates, atomically. A failure on any element
	// aborts the whole batch.
	BulkProcess(ctx context.Context, creates []*domain.Incident, updates []BulkUpdate) error
}

// FieldSet names the incident fields touched by a targeted update. The keys
// are domain field names; store implementations map them to their layout.
// Identifier, createdAt and accountIdentifier are never valid keys, which is
// what makes them immutable post-creation.
type FieldSet map[string]any

// Targeted update field names.
const (
	FieldName              = "name"
	FieldDescription       = "description"
	FieldTags              = "tags"
	FieldSeverity          = "severity"
	FieldStatus            = "status"
	FieldActive            = "active"
	FieldSummary           = "summary"
	FieldComments          = "comments"
	FieldServices          = "services"
	FieldEnvironments      = "environments"
	FieldFunctionalities   = "functionalities"
	FieldRoles             = "roles"
	FieldStages            = "stages"
	FieldTimeline          = "timeline"
	FieldChannels          = "channels"
	FieldConferenceDetails = "conferenceDetails"
	FieldAttachments       = "attachments"
	FieldUpdatedAt         = "updatedAt"
	FieldUpdatedBy         = "updatedBy"
)

// BulkUpdate is one targeted update inside a bulk batch.
type BulkUpdate struct {
	ID              string
	ExpectedVersion int64
	Fields          FieldSet
}

// ListFilters holds filter criteria for List and Count.
type ListFilters struct {
	AccountIdentifier string
	OrgIdentifier     string
	ProjectIdentifier string
	Type              *domain.Type
	Severity          *domain.Severity
	Status            *domain.Status
	Active            *bool
	Search            string // substring match on name
	Limit             int
	Offset            int
}
