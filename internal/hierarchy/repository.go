package hierarchy

import (
	"context"

	"github.com/respondnow/respondnow/internal/domain"
)

// AccountStore persists accounts. Identifier lookups ignore soft-deleted rows.
type AccountStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
	Save(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// Delete soft-deletes by identifier.
	Delete(ctx context.Context, identifier string) error
}

// OrganizationStore persists organizations.
type OrganizationStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Organization, error)
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
	Save(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	Delete(ctx context.Context, identifier string) error
}

// ProjectStore persists projects.
type ProjectStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Project, error)
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
	Save(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, identifier string) error
}

// UserMappingStore persists user-to-hierarchy mappings.
type UserMappingStore interface {
	Save(ctx context.Context, mapping *domain.UserMapping) (*domain.UserMapping, error)
	FindByUserID(ctx context.Context, userID string) ([]*domain.UserMapping, error)
}
