// Package identity provides user provisioning. Token issuance lives outside
// this service.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/respondnow/respondnow/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Repository persists users. User deletes are hard: a removed user leaves no
// row behind, unlike the soft-deleted hierarchy entities.
type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// SignupInput holds data for creating a user.
type SignupInput struct {
	UserID   string
	Name     string
	Email    string
	Password string
}

// Service implements user provisioning.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Signup registers a new user with a bcrypt-hashed password. New users start
// inactive and must change the password on first login. Returns
// ErrEmailExists when the email is already registered.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	exists, err := s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().Unix()
	user := &domain.User{
		UserID:                 input.UserID,
		Name:                   input.Name,
		Email:                  input.Email,
		PasswordHash:           string(hash),
		Active:                 false,
		ChangePasswordRequired: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	return s.repo.Save(ctx, user)
}

// HardDelete removes a user row entirely.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}
