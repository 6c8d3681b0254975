// Package postgres provides the PostgreSQL implementation of the identity
// repository.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/respondnow/respondnow/internal/domain"
	"github.com/respondnow/respondnow/internal/identity"
)

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ExistsByEmail reports whether a user is registered under the email.
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, &identity.StoreError{Op: "check email", Err: err, Transient: true}
	}
	return exists, nil
}

// FindByEmail retrieves a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, user_id, name, email, password_hash, active, change_password_required,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE email = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.UserID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Active, &u.ChangePasswordRequired,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, &identity.StoreError{Op: "find user", Err: err, Transient: true}
	}
	return &u, nil
}

// Save inserts a new user.
func (r *Repository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (user_id, name, email, password_hash, active, change_password_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		user.UserID, user.Name, user.Email, user.PasswordHash,
		user.Active, user.ChangePasswordRequired, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, &identity.StoreError{Op: "save user", Err: err, Transient: true}
	}
	return user, nil
}

// DeleteByID removes a user row.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return &identity.StoreError{Op: "delete user", Err: err, Transient: true}
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}
