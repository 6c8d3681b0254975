// Package postgres provides PostgreSQL implementations of the hierarchy
// stores. Deletes are soft: rows get a removed flag and identifier lookups
// filter them out.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/respondnow/respondnow/internal/domain"
	"github.com/respondnow/respondnow/internal/hierarchy"
)

// AccountRepository implements hierarchy.AccountStore.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByIdentifier retrieves an account by its business identifier.
func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	query := `
		SELECT id, account_identifier, name, created_at, updated_at, created_by, updated_by, removed
		FROM accounts
		WHERE account_identifier = $1 AND NOT removed
	`
	var a domain.Account
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&a.ID, &a.AccountIdentifier, &a.Name,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy, &a.Removed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hierarchy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

// ExistsByIdentifier reports whether a live account uses the identifier.
func (r *AccountRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_identifier = $1 AND NOT removed)`,
		identifier,
	).Scan(&exists)
	if err != nil {
		return false, &hierarchy.StoreError{Op: "check account", Err: err, Transient: true}
	}
	return exists, nil
}

// Save inserts a new account.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (account_identifier, name, created_at, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		account.AccountIdentifier, account.Name, account.CreatedAt, account.CreatedBy,
	).Scan(&account.ID)
	if err != nil {
		return nil, &hierarchy.StoreError{Op: "save account", Err: err, Transient: true}
	}
	return account, nil
}

// Delete soft-deletes an account by identifier.
func (r *AccountRepository) Delete(ctx context.Context, identifier string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET removed = TRUE WHERE account_identifier = $1 AND NOT removed`,
		identifier,
	)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return hierarchy.ErrAccountNotFound
	}
	return nil
}

// OrganizationRepository implements hierarchy.OrganizationStore.
type OrganizationRepository struct {
	db *pgxpool.Pool
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(db *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindByIdentifier retrieves an organization by its business identifier.
func (r *OrganizationRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Organization, error) {
	query := `
		SELECT id, org_identifier, account_identifier, name, created_at, updated_at, created_by, updated_by, removed
		FROM organizations
		WHERE org_identifier = $1 AND NOT removed
	`
	var o domain.Organization
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&o.ID, &o.OrgIdentifier, &o.AccountIdentifier, &o.Name,
		&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy, &o.Removed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hierarchy.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &o, nil
}

// ExistsByIdentifier reports whether a live organization uses the identifier.
func (r *OrganizationRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE org_identifier = $1 AND NOT removed)`,
		identifier,
	).Scan(&exists)
	if err != nil {
		return false, &hierarchy.StoreError{Op: "check organization", Err: err, Transient: true}
	}
	return exists, nil
}

// Save inserts a new organization.
func (r *OrganizationRepository) Save(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	query := `
		INSERT INTO organizations (org_identifier, account_identifier, name, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		org.OrgIdentifier, org.AccountIdentifier, org.Name, org.CreatedAt, org.CreatedBy,
	).Scan(&org.ID)
	if err != nil {
		return nil, &hierarchy.StoreError{Op: "save organization", Err: err, Transient: true}
	}
	return org, nil
}

// Delete soft-deletes an organization by identifier.
func (r *OrganizationRepository) Delete(ctx context.Context, identifier string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE organizations SET removed = TRUE WHERE org_identifier = $1 AND NOT removed`,
		identifier,
	)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return hierarchy.ErrOrganizationNotFound
	}
	return nil
}

// ProjectRepository implements hierarchy.ProjectStore.
type ProjectRepository struct {
	db *pgxpool.Pool
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByIdentifier retrieves a project by its business identifier.
func (r *ProjectRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Project, error) {
	query := `
		SELECT id, project_identifier, org_identifier, account_identifier, name,
		       created_at, updated_at, created_by, updated_by, removed
		FROM projects
		WHERE project_identifier = $1 AND NOT removed
	`
	var p domain.Project
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&p.ID, &p.ProjectIdentifier, &p.OrgIdentifier, &p.AccountIdentifier, &p.Name,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy, &p.Removed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hierarchy.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &p, nil
}

// ExistsByIdentifier reports whether a live project uses the identifier.
func (r *ProjectRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE project_identifier = $1 AND NOT removed)`,
		identifier,
	).Scan(&exists)
	if err != nil {
		return false, &hierarchy.StoreError{Op: "check project", Err: err, Transient: true}
	}
	return exists, nil
}

// Save inserts a new project.
func (r *ProjectRepository) Save(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	query := `
		INSERT INTO projects (project_identifier, org_identifier, account_identifier, name, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		project.ProjectIdentifier, project.OrgIdentifier, project.AccountIdentifier,
		project.Name, project.CreatedAt, project.CreatedBy,
	).Scan(&project.ID)
	if err != nil {
		return nil, &hierarchy.StoreError{Op: "save project", Err: err, Transient: true}
	}
	return project, nil
}

// Delete soft-deletes a project by identifier.
func (r *ProjectRepository) Delete(ctx context.Context, identifier string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET removed = TRUE WHERE project_identifier = $1 AND NOT removed`,
		identifier,
	)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return hierarchy.ErrProjectNotFound
	}
	return nil
}

// UserMappingRepository implements hierarchy.UserMappingStore.
type UserMappingRepository struct {
	db *pgxpool.Pool
}

// NewUserMappingRepository creates a new user mapping repository.
func NewUserMappingRepository(db *pgxpool.Pool) *UserMappingRepository {
	return &UserMappingRepository{db: db}
}

// Save inserts a new user mapping.
func (r *UserMappingRepository) Save(ctx context.Context, mapping *domain.UserMapping) (*domain.UserMapping, error) {
	query := `
		INSERT INTO user_mappings (user_id, account_identifier, org_identifier, project_identifier, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		mapping.UserID, mapping.AccountIdentifier, mapping.OrgIdentifier,
		mapping.ProjectIdentifier, mapping.IsDefault, mapping.CreatedAt,
	).Scan(&mapping.ID)
	if err != nil {
		return nil, &hierarchy.StoreError{Op: "save user mapping", Err: err, Transient: true}
	}
	return mapping, nil
}

// FindByUserID retrieves all live mappings for a user.
func (r *UserMappingRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.UserMapping, error) {
	query := `
		SELECT id, user_id, account_identifier, org_identifier, project_identifier, is_default, created_at, updated_at, removed
		FROM user_mappings
		WHERE user_id = $1 AND NOT removed
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("find user mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]*domain.UserMapping, 0)
	for rows.Next() {
		var m domain.UserMapping
		err := rows.Scan(
			&m.ID, &m.UserID, &m.AccountIdentifier, &m.OrgIdentifier,
			&m.ProjectIdentifier, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt, &m.Removed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	return mappings, rows.Err()
}
