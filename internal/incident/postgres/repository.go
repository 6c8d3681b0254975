// Package postgres provides the PostgreSQL implementation of the incident
// store. Scalar fields live in columns so targeted field updates stay
// column-level writes; embedded lists (timeline, roles, channels, ...) are
// stored as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/respondnow/respondnow/internal/domain"
	"github.com/respondnow/respondnow/internal/incident"
)

// fieldColumns maps targeted-update field names to columns. Identifier,
// created_at and account_identifier are deliberately absent: a FieldSet can
// never touch them.
var fieldColumns = map[string]string{
	incident.FieldName:              "name",
	incident.FieldDescription:       "description",
	incident.FieldTags:              "tags",
	incident.FieldSeverity:          "severity",
	incident.FieldStatus:            "status",
	incident.FieldActive:            "active",
	incident.FieldSummary:           "summary",
	incident.FieldComments:          "comments",
	incident.FieldServices:          "services",
	incident.FieldEnvironments:      "environments",
	incident.FieldFunctionalities:   "functionalities",
	incident.FieldRoles:             "roles",
	incident.FieldStages:            "stages",
	incident.FieldTimeline:          "timeline",
	incident.FieldChannels:          "channels",
	incident.FieldConferenceDetails: "conference_details",
	incident.FieldAttachments:       "attachments",
	incident.FieldUpdatedAt:         "updated_at",
	incident.FieldUpdatedBy:         "updated_by",
}

// jsonbFields holds the field names whose values are encoded as JSONB.
var jsonbFields = map[string]bool{
	incident.FieldTags:              true,
	incident.FieldComments:          true,
	incident.FieldServices:          true,
	incident.FieldEnvironments:      true,
	incident.FieldFunctionalities:   true,
	incident.FieldRoles:             true,
	incident.FieldStages:            true,
	incident.FieldTimeline:          true,
	incident.FieldChannels:          true,
	incident.FieldConferenceDetails: true,
	incident.FieldAttachments:       true,
	incident.FieldUpdatedBy:         true,
}

// Repository implements incident.Store using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL incident repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, version, account_identifier, org_identifier, project_identifier,
	identifier, name, description, summary, type, severity, status, active,
	tags, comments, services, environments, functionalities, roles, timeline,
	stages, channels, incident_channel, conference_details, attachments,
	created_at, updated_at, created_by, updated_by, removed_at, removed
`

// Insert persists a new incident and assigns its internal id.
func (r *Repository) Insert(ctx context.Context, inc *domain.Incident) (*domain.Incident, error) {
	query := `
		INSERT INTO incidents (
			account_identifier, org_identifier, project_identifier,
			identifier, name, description, summary, type, severity, status, active,
			tags, comments, services, environments, functionalities, roles, timeline,
			stages, channels, incident_channel, conference_details, attachments,
			created_at, updated_at, created_by, updated_by, removed_at, removed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28, $29
		)
		RETURNING id, version
	`
	args, err := insertArgs(inc)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&inc.ID, &inc.Version); err != nil {
		return nil, &incident.StoreError{Op: "insert", Err: err, Transient: true}
	}
	return inc, nil
}

// FindByIdentifier retrieves an incident by its business key.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE identifier = $1`
	return r.findOne(ctx, query, identifier)
}

// FindByID retrieves an incident by its internal id.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*domain.Incident, error) {
	inc, err := scanIncident(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrIncidentNotFound
		}
		return nil, &incident.StoreError{Op: "find", Err: err, Transient: true}
	}
	return inc, nil
}

// List retrieves incidents matching the filters with skip/limit paging.
func (r *Repository) List(ctx context.Context, filters incident.ListFilters) ([]*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	where, args := buildFilters(filters)
	query += where
	query += " ORDER BY created_at DESC"

	argNum := len(args) + 1
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &incident.StoreError{Op: "list", Err: err, Transient: true}
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// Count returns the number of incidents matching the filters.
func (r *Repository) Count(ctx context.Context, filters incident.ListFilters) (int64, error) {
	query := `SELECT COUNT(*) FROM incidents`
	where, args := buildFilters(filters)
	query += where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, &incident.StoreError{Op: "count", Err: err, Transient: true}
	}
	return count, nil
}

// UpdateFields applies a targeted update guarded by the version CAS.
func (r *Repository) UpdateFields(ctx context.Context, id string, expectedVersion int64, fields incident.FieldSet) error {
	return r.updateFields(ctx, r.db, id, expectedVersion, fields)
}

func (r *Repository) updateFields(ctx context.Context, q querier, id string, expectedVersion int64, fields incident.FieldSet) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	argNum := 1

	for name, value := range fields {
		col, ok := fieldColumns[name]
		if !ok {
			return fmt.Errorf("field %q is not updatable", name)
		}
		v := value
		if jsonbFields[name] {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			v = encoded
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, v)
		argNum++
	}

	setClauses = append(setClauses, "version = version + 1")

	query := fmt.Sprintf(
		"UPDATE incidents SET %s WHERE id = $%d AND version = $%d",
		strings.Join(setClauses, ", "), argNum, argNum+1,
	)
	args = append(args, id, expectedVersion)

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return &incident.StoreError{Op: "update", Err: err, Transient: true}
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1)", id).Scan(&exists); err != nil {
			return &incident.StoreError{Op: "update", Err: err, Transient: true}
		}
		if !exists {
			return incident.ErrIncidentNotFound
		}
		return incident.ErrVersionConflict
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// BulkProcess inserts all creates and applies all targeted updates inside one
// transaction. Any failure rolls back the whole batch.
func (r *Repository) BulkProcess(ctx context.Context, creates []*domain.Incident, updates []incident.BulkUpdate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &incident.StoreError{Op: "begin", Err: err, Transient: true}
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	for _, inc := range creates {
		query := `
			INSERT INTO incidents (
				account_identifier, org_identifier, project_identifier,
				identifier, name, description, summary, type, severity, status, active,
				tags, comments, services, environments, functionalities, roles, timeline,
				stages, channels, incident_channel, conference_details, attachments,
				created_at, updated_at, created_by, updated_by, removed_at, removed
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18,
				$19, $20, $21, $22, $23,
				$24, $25, $26, $27, $28, $29
			)
			RETURNING id, version
		`
		args, err := insertArgs(inc)
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&inc.ID, &inc.Version); err != nil {
			return &incident.StoreError{Op: "bulk insert", Err: err, Transient: true}
		}
	}

	for _, upd := range updates {
		if err := r.updateFields(ctx, tx, upd.ID, upd.ExpectedVersion, upd.Fields); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &incident.StoreError{Op: "commit", Err: err, Transient: true}
	}
	return nil
}

func buildFilters(filters incident.ListFilters) (string, []any) {
	var clauses []string
	var args []any
	argNum := 1

	add := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, argNum))
		args = append(args, value)
		argNum++
	}

	if filters.AccountIdentifier != "" {
		add("account_identifier = $%d", filters.AccountIdentifier)
	}
	if filters.OrgIdentifier != "" {
		add("org_identifier = $%d", filters.OrgIdentifier)
	}
	if filters.ProjectIdentifier != "" {
		add("project_identifier = $%d", filters.ProjectIdentifier)
	}
	if filters.Type != nil {
		add("type = $%d", string(*filters.Type))
	}
	if filters.Severity != nil {
		add("severity = $%d", string(*filters.Severity))
	}
	if filters.Status != nil {
		add("status = $%d", string(*filters.Status))
	}
	if filters.Active != nil {
		add("active = $%d", *filters.Active)
	}
	if filters.Search != "" {
		add("name ILIKE $%d", "%"+filters.Search+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func insertArgs(inc *domain.Incident) ([]any, error) {
	jsonCols := []struct {
		name  string
		value any
	}{
		{"tags", inc.Tags},
		{"comments", inc.Comments},
		{"services", inc.Services},
		{"environments", inc.Environments},
		{"functionalities", inc.Functionalities},
		{"roles", inc.Roles},
		{"timeline", inc.Timeline},
		{"stages", inc.Stages},
		{"channels", inc.Channels},
		{"incident_channel", inc.IncidentChannel},
		{"conference_details", inc.ConferenceDetails},
		{"attachments", inc.Attachments},
		{"created_by", inc.CreatedBy},
		{"updated_by", inc.UpdatedBy},
	}
	encoded := make(map[string][]byte, len(jsonCols))
	for _, c := range jsonCols {
		b, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		encoded[c.name] = b
	}

	return []any{
		inc.AccountIdentifier, inc.OrgIdentifier, inc.ProjectIdentifier,
		inc.Identifier, inc.Name, inc.Description, inc.Summary,
		string(inc.Type), string(inc.Severity), string(inc.Status), inc.Active,
		encoded["tags"], encoded["comments"], encoded["services"],
		encoded["environments"], encoded["functionalities"], encoded["roles"],
		encoded["timeline"], encoded["stages"], encoded["channels"],
		encoded["incident_channel"], encoded["conference_details"], encoded["attachments"],
		inc.CreatedAt, inc.UpdatedAt, encoded["created_by"], encoded["updated_by"],
		inc.RemovedAt, inc.Removed,
	}, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var inc domain.Incident
	var (
		tags, comments, services, environments, functionalities []byte
		roles, timeline, stages, channels, incidentChannel      []byte
		conferenceDetails, attachments, createdBy, updatedBy    []byte
		typ, severity, status                                   string
	)

	err := row.Scan(
		&inc.ID, &inc.Version, &inc.AccountIdentifier, &inc.OrgIdentifier, &inc.ProjectIdentifier,
		&inc.Identifier, &inc.Name, &inc.Description, &inc.Summary, &typ, &severity, &status, &inc.Active,
		&tags, &comments, &services, &environments, &functionalities, &roles, &timeline,
		&stages, &channels, &incidentChannel, &conferenceDetails, &attachments,
		&inc.CreatedAt, &inc.UpdatedAt, &createdBy, &updatedBy, &inc.RemovedAt, &inc.Removed,
	)
	if err != nil {
		return nil, err
	}

	inc.Type = domain.Type(typ)
	inc.Severity = domain.Severity(severity)
	inc.Status = domain.Status(status)

	decode := func(data []byte, dst any) error {
		if len(data) == 0 || string(data) == "null" {
			return nil
		}
		return json.Unmarshal(data, dst)
	}

	for _, d := range []struct {
		data []byte
		dst  any
	}{
		{tags, &inc.Tags},
		{comments, &inc.Comments},
		{services, &inc.Services},
		{environments, &inc.Environments},
		{functionalities, &inc.Functionalities},
		{roles, &inc.Roles},
		{timeline, &inc.Timeline},
		{stages, &inc.Stages},
		{channels, &inc.Channels},
		{incidentChannel, &inc.IncidentChannel},
		{conferenceDetails, &inc.ConferenceDetails},
		{attachments, &inc.Attachments},
		{createdBy, &inc.CreatedBy},
		{updatedBy, &inc.UpdatedBy},
	} {
		if err := decode(d.data, d.dst); err != nil {
			return nil, err
		}
	}

	return &inc, nil
}
