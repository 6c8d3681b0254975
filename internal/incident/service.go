// Package incident implements the incident lifecycle engine: creation and
// mutation with an append-only audit timeline and role reconciliation.
package incident

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/respondnow/respondnow/internal/domain"
	"github.com/respondnow/respondnow/internal/pkg/metrics"
)

// Notifier receives the updated incident after every successful mutation so a
// downstream layer (chat, email) can render it. Delivery is best effort: an
// error here never fails the mutation.
type Notifier interface {
	IncidentChanged(ctx context.Context, inc *domain.Incident, change domain.ChangeType) error
}

// Defaults is the hierarchy scope stamped onto incidents created without an
// explicit one. Injected at construction time, never read from ambient state.
type Defaults struct {
	AccountIdentifier string
	OrgIdentifier     string
	ProjectIdentifier string
}

// Service orchestrates validation, persistence and timeline emission for
// incident creation and every mutation.
type Service struct {
	store    Store
	notifier Notifier
	defaults Defaults
	validate *validator.Validate
}

// NewService creates the lifecycle service. notifier may be nil.
func NewService(store Store, notifier Notifier, defaults Defaults) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		defaults: defaults,
		validate: validator.New(),
	}
}

// CreateRequest holds data for creating an incident.
type CreateRequest struct {
	Name            string
	Description     string
	Tags            []string
	Type            domain.Type     `validate:"required"`
	Severity        domain.Severity `validate:"required"`
	Status          domain.Status
	Summary         string
	IncidentChannel *domain.IncidentChannel
	Channels        []domain.Channel
	Services        []domain.Service
	Environments    []domain.Environment
	Functionalities []domain.Functionality
	Roles           []domain.Role
	Attachments     []domain.Attachment
}

// Create builds and persists a new incident. The identifier is generated from
// the creation time plus a random token and is immutable afterwards. Status
// defaults to STARTED when absent. One CREATED timeline entry is always
// emitted; a CHANNEL_CREATED entry follows when the request binds a chat
// channel.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor domain.UserDetails) (*domain.Incident, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, requestValidationError(err)
	}

	now := time.Now().Unix()
	identifier := generateIdentifier(now)

	status := req.Status
	if status == "" {
		status = domain.StatusStarted
	}

	inc := &domain.Incident{
		AccountIdentifier: s.defaults.AccountIdentifier,
		OrgIdentifier:     s.defaults.OrgIdentifier,
		ProjectIdentifier: s.defaults.ProjectIdentifier,
		Identifier:        identifier,
		Name:              req.Name,
		Description:       req.Description,
		Tags:              req.Tags,
		Type:              req.Type,
		Severity:          req.Severity,
		Status:            status,
		Summary:           req.Summary,
		Active:            true,
		Services:          req.Services,
		Environments:      req.Environments,
		Functionalities:   req.Functionalities,
		Roles:             req.Roles,
		Channels:          req.Channels,
		IncidentChannel:   req.IncidentChannel,
		Attachments:       req.Attachments,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         &actor,
		UpdatedBy:         &actor,
	}

	var channelDetail *domain.ChannelDetail
	if req.IncidentChannel != nil {
		channelDetail = req.IncidentChannel.Channel
	}

	inc.Timeline = append(inc.Timeline, NewTimelineEntry(EntryInput{
		Type:         domain.ChangeCreated,
		CurrentState: string(status),
		Actor:        actor,
		Message:      "Incident created",
		Channel:      channelDetail,
		Timestamp:    now,
	}))

	if req.IncidentChannel != nil {
		if len(req.Channels) == 0 {
			return nil, ErrMissingChannels
		}
		channel := req.Channels[0]
		inc.Timeline = append(inc.Timeline, NewTimelineEntry(EntryInput{
			Type:          domain.ChangeChannelCreated,
			PreviousState: channel.ID,
			CurrentState:  channel.ID,
			Actor:         actor,
			Message:       "Chat channel associated with the incident",
			Channel:       channelDetail,
			Timestamp:     now,
		}))
	}

	if err := validateIncident(inc); err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, inc)
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}

	metrics.RecordIncidentMutation(string(domain.ChangeCreated))
	s.notify(ctx, created, domain.ChangeCreated)
	return created, nil
}

// UpdateSummary replaces the incident summary. The description follows the
// summary so both fields stay readable on their own.
func (s *Service) UpdateSummary(ctx context.Context, identifier, summary string, actor domain.UserDetails) (*domain.Incident, error) {
	return s.mutate(ctx, identifier, actor, domain.ChangeSummary,
		func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error) {
			old := inc.Summary
			inc.Summary = summary
			inc.Description = summary
			return FieldSet{
					FieldSummary:     summary,
					FieldDescription: summary,
				}, EntryInput{
					Type:          domain.ChangeSummary,
					PreviousState: old,
					CurrentState:  summary,
					Message:       "Summary updated",
				}, nil
		})
}

// UpdateStatus moves the incident to a new lifecycle status.
func (s *Service) UpdateStatus(ctx context.Context, identifier string, status domain.Status, actor domain.UserDetails) (*domain.Incident, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", status)}
	}
	return s.mutate(ctx, identifier, actor, domain.ChangeStatus,
		func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error) {
			old := inc.Status
			inc.Status = status
			return FieldSet{FieldStatus: status}, EntryInput{
				Type:          domain.ChangeStatus,
				PreviousState: string(old),
				CurrentState:  string(status),
				Message:       "Status updated",
			}, nil
		})
}

// UpdateSeverity changes the incident severity.
func (s *Service) UpdateSeverity(ctx context.Context, identifier string, severity domain.Severity, actor domain.UserDetails) (*domain.Incident, error) {
	if !severity.IsValid() {
		return nil, &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown value %q", severity)}
	}
	return s.mutate(ctx, identifier, actor, domain.ChangeSeverity,
		func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error) {
			old := inc.Severity
			inc.Severity = severity
			return FieldSet{FieldSeverity: severity}, EntryInput{
				Type:          domain.ChangeSeverity,
				PreviousState: string(old),
				CurrentState:  string(severity),
				Message:       "Severity updated",
			}, nil
		})
}

// AddComment appends a comment. Comments accumulate rather than replace, so
// the timeline entry carries the new text as both previous and current state.
func (s *Service) AddComment(ctx context.Context, identifier, comment string, actor domain.UserDetails) (*domain.Incident, error) {
	return s.mutate(ctx, identifier, actor, domain.ChangeComment,
		func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error) {
			inc.Comments = append(inc.Comments, comment)
			return FieldSet{FieldComments: inc.Comments}, EntryInput{
				Type:          domain.ChangeComment,
				PreviousState: comment,
				CurrentState:  comment,
				Message:       "Comment added",
			}, nil
		})
}

// UpdateRoles reconciles the incident's role assignments against the
// requested set. The ROLES timeline entry carries the full before/after
// snapshot, not just the diff, so consumers can render complete state without
// replaying history. Returns ErrNoRoleChanges when the request is a no-op.
func (s *Service) UpdateRoles(ctx context.Context, identifier string, requested []domain.Role, actor domain.UserDetails) (*domain.Incident, error) {
	return s.mutate(ctx, identifier, actor, domain.ChangeRoles,
		func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error) {
			rec, err := ReconcileRoles(inc.Roles, requested)
			if err != nil {
				return nil, EntryInput{}, err
			}
			inc.Roles = rec.Roles
			snapshot := rec.Snapshot
			return FieldSet{FieldRoles: rec.Roles}, EntryInput{
				Type:          domain.ChangeRoles,
				PreviousState: strings.Join(rec.PreviousStates, " | "),
				CurrentState:  strings.Join(rec.CurrentStates, " | "),
				Message:       "Roles updated",
				Extra:         &snapshot,
			}, nil
		})
}

// mutate is the shared update template: load by identifier, apply the change,
// stamp audit fields, append exactly one timeline entry, validate, persist via
// a targeted field update guarded by the version CAS, and return the freshly
// reloaded incident. The update set never contains identifier, createdAt or
// accountIdentifier, which keeps them immutable by construction.
func (s *Service) mutate(
	ctx context.Context,
	identifier string,
	actor domain.UserDetails,
	change domain.ChangeType,
	apply func(inc *domain.Incident, ts int64) (FieldSet, EntryInput, error),
) (*domain.Incident, error) {
	inc, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	ts := time.Now().Unix()

	fields, entry, err := apply(inc, ts)
	if err != nil {
		return nil, err
	}

	entry.Actor = actor
	entry.Timestamp = ts
	inc.Timeline = append(inc.Timeline, NewTimelineEntry(entry))
	inc.UpdatedAt = ts
	inc.UpdatedBy = &actor

	fields[FieldTimeline] = inc.Timeline
	fields[FieldUpdatedAt] = ts
	fields[FieldUpdatedBy] = &actor

	if err := validateIncident(inc); err != nil {
		return nil, err
	}

	if err := s.store.UpdateFields(ctx, inc.ID, inc.Version, fields); err != nil {
		return nil, err
	}

	// Reload so the caller sees exactly what was persisted. A miss here is a
	// consistency fault, not user error; ErrIncidentNotFound conveys that.
	updated, err := s.store.FindByID(ctx, inc.ID)
	if err != nil {
		return nil, err
	}

	metrics.RecordIncidentMutation(string(change))
	s.notify(ctx, updated, change)
	return updated, nil
}

// BulkProcess applies validate+stamp to every element of both lists using one
// shared timestamp, then hands the whole batch to the store. All-or-nothing:
// a failure on any element aborts the batch inside the store's transaction
// boundary, with no application-level rollback.
func (s *Service) BulkProcess(ctx context.Context, createList, updateList []*domain.Incident) error {
	now := time.Now().Unix()

	for _, inc := range createList {
		inc.ID = ""
		inc.CreatedAt = now
		inc.UpdatedAt = now
		if err := validateIncident(inc); err != nil {
			return err
		}
	}

	updates := make([]BulkUpdate, 0, len(updateList))
	for _, inc := range updateList {
		inc.UpdatedAt = now
		if err := validateIncident(inc); err != nil {
			return err
		}
		updates = append(updates, BulkUpdate{
			ID:              inc.ID,
			ExpectedVersion: inc.Version,
			Fields: FieldSet{
				FieldName:              inc.Name,
				FieldDescription:       inc.Description,
				FieldTags:              inc.Tags,
				FieldSeverity:          inc.Severity,
				FieldStatus:            inc.Status,
				FieldActive:            inc.Active,
				FieldSummary:           inc.Summary,
				FieldComments:          inc.Comments,
				FieldServices:          inc.Services,
				FieldEnvironments:      inc.Environments,
				FieldFunctionalities:   inc.Functionalities,
				FieldRoles:             inc.Roles,
				FieldStages:            inc.Stages,
				FieldTimeline:          inc.Timeline,
				FieldChannels:          inc.Channels,
				FieldConferenceDetails: inc.ConferenceDetails,
				FieldAttachments:       inc.Attachments,
				FieldUpdatedAt:         now,
				FieldUpdatedBy:         inc.UpdatedBy,
			},
		})
	}

	if err := s.store.BulkProcess(ctx, createList, updates); err != nil {
		return fmt.Errorf("bulk process: %w", err)
	}
	return nil
}

// RemoveTimelineEntry is an administrative correction path. It deletes one
// entry by id and is deliberately not part of the standard mutation template:
// it emits no timeline entry of its own.
func (s *Service) RemoveTimelineEntry(ctx context.Context, identifier, entryID string, actor domain.UserDetails) (*domain.Incident, error) {
	inc, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.TimelineEntry, 0, len(inc.Timeline))
	for _, e := range inc.Timeline {
		if e.ID == entryID {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) == len(inc.Timeline) {
		return nil, ErrTimelineEntryNotFound
	}

	ts := time.Now().Unix()
	fields := FieldSet{
		FieldTimeline:  filtered,
		FieldUpdatedAt: ts,
		FieldUpdatedBy: &actor,
	}
	if err := s.store.UpdateFields(ctx, inc.ID, inc.Version, fields); err != nil {
		return nil, err
	}

	slog.Warn("timeline entry removed",
		"identifier", identifier,
		"entry_id", entryID,
		"actor", actor.UserID,
	)
	return s.store.FindByID(ctx, inc.ID)
}

// Get retrieves an incident by its business identifier.
func (s *Service) Get(ctx context.Context, identifier string) (*domain.Incident, error) {
	return s.store.FindByIdentifier(ctx, identifier)
}

// GetByID retrieves an incident by its internal id.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	return s.store.FindByID(ctx, id)
}

// List returns incidents matching the filters plus the total match count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]*domain.Incident, int64, error) {
	items, err := s.store.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	total, err := s.store.Count(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}
	return items, total, nil
}

// Catalog accessors for the supported enumerations.

func (s *Service) Types() []domain.Type                     { return domain.Types() }
func (s *Service) Severities() []domain.Severity            { return domain.Severities() }
func (s *Service) Statuses() []domain.Status                { return domain.Statuses() }
func (s *Service) RoleTypes() []domain.RoleType             { return domain.RoleTypes() }
func (s *Service) AttachmentTypes() []domain.AttachmentType { return domain.AttachmentTypes() }

func (s *Service) notify(ctx context.Context, inc *domain.Incident, change domain.ChangeType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.IncidentChanged(ctx, inc, change); err != nil {
		slog.Error("failed to enqueue incident notification",
			"identifier", inc.Identifier,
			"change", change,
			"error", err,
		)
	}
}

// validateIncident is the gate run before every persist. The required-field
// invariant must hold at all times after creation.
func validateIncident(inc *domain.Incident) error {
	switch {
	case inc.Identifier == "":
		return &ValidationError{Field: "identifier", Reason: "is required"}
	case inc.AccountIdentifier == "":
		return &ValidationError{Field: "accountIdentifier", Reason: "is required"}
	case inc.Type == "":
		return &ValidationError{Field: "type", Reason: "is required"}
	case !inc.Type.IsValid():
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown value %q", inc.Type)}
	case inc.Status == "":
		return &ValidationError{Field: "status", Reason: "is required"}
	case !inc.Status.IsValid():
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", inc.Status)}
	case inc.Severity == "":
		return &ValidationError{Field: "severity", Reason: "is required"}
	case !inc.Severity.IsValid():
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown value %q", inc.Severity)}
	case inc.Summary == "" && inc.Description == "":
		return &ValidationError{Field: "summary", Reason: "or description must not be empty"}
	}
	return nil
}

func requestValidationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return &ValidationError{Field: strings.ToLower(verrs[0].Field()), Reason: "is required"}
	}
	return &ValidationError{Field: "request", Reason: err.Error()}
}

// generateIdentifier builds the business key "<unixSeconds>-<uuid>".
func generateIdentifier(createdAt int64) string {
	return fmt.Sprintf("%d-%s", createdAt, uuid.New())
}
