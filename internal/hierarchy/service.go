// Package hierarchy manages the account/organization/project tree and the
// user mappings that bind users into it.
package hierarchy

import (
	"context"
	"fmt"
	"time"

	"github.com/respondnow/respondnow/internal/domain"
)

// Service implements hierarchy entity management. Each entity type has a
// uniqueness check on its business identifier and soft delete.
type Service struct {
	accounts AccountStore
	orgs     OrganizationStore
	projects ProjectStore
	mappings UserMappingStore
}

// NewService creates a new hierarchy service.
func NewService(accounts AccountStore, orgs OrganizationStore, projects ProjectStore, mappings UserMappingStore) *Service {
	return &Service{
		accounts: accounts,
		orgs:     orgs,
		projects: projects,
		mappings: mappings,
	}
}

// CreateAccount persists a new account after checking identifier uniqueness.
func (s *Service) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	exists, err := s.accounts.ExistsByIdentifier(ctx, account.AccountIdentifier)
	if err != nil {
		return nil, fmt.Errorf("check account identifier: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("account %q: %w", account.AccountIdentifier, ErrIdentifierExists)
	}
	return s.accounts.Save(ctx, account)
}

// GetAccount retrieves an account by its business identifier.
func (s *Service) GetAccount(ctx context.Context, identifier string) (*domain.Account, error) {
	return s.accounts.FindByIdentifier(ctx, identifier)
}

// DeleteAccount soft-deletes an account.
func (s *Service) DeleteAccount(ctx context.Context, identifier string) error {
	return s.accounts.Delete(ctx, identifier)
}

// CreateOrganization persists a new organization after checking identifier uniqueness.
func (s *Service) CreateOrganization(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	exists, err := s.orgs.ExistsByIdentifier(ctx, org.OrgIdentifier)
	if err != nil {
		return nil, fmt.Errorf("check org identifier: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("organization %q: %w", org.OrgIdentifier, ErrIdentifierExists)
	}
	return s.orgs.Save(ctx, org)
}

// GetOrganization retrieves an organization by its business identifier.
func (s *Service) GetOrganization(ctx context.Context, identifier string) (*domain.Organization, error) {
	return s.orgs.FindByIdentifier(ctx, identifier)
}

// DeleteOrganization soft-deletes an organization.
func (s *Service) DeleteOrganization(ctx context.Context, identifier string) error {
	return s.orgs.Delete(ctx, identifier)
}

// CreateProject persists a new project after checking identifier uniqueness.
func (s *Service) CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	exists, err := s.projects.ExistsByIdentifier(ctx, project.ProjectIdentifier)
	if err != nil {
		return nil, fmt.Errorf("check project identifier: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("project %q: %w", project.ProjectIdentifier, ErrIdentifierExists)
	}
	return s.projects.Save(ctx, project)
}

// GetProject retrieves a project by its business identifier.
func (s *Service) GetProject(ctx context.Context, identifier string) (*domain.Project, error) {
	return s.projects.FindByIdentifier(ctx, identifier)
}

// DeleteProject soft-deletes a project.
func (s *Service) DeleteProject(ctx context.Context, identifier string) error {
	return s.projects.Delete(ctx, identifier)
}

// CreateUserMapping links a user to an (account, org, project) triple. Empty
// org/project identifiers stay unset so account-scoped mappings are possible.
func (s *Service) CreateUserMapping(ctx context.Context, userID, accountID, orgID, projectID string, isDefault bool) (*domain.UserMapping, error) {
	mapping := &domain.UserMapping{
		UserID:            userID,
		AccountIdentifier: accountID,
		IsDefault:         isDefault,
		CreatedAt:         time.Now().Unix(),
	}
	if orgID != "" {
		mapping.OrgIdentifier = orgID
	}
	if projectID != "" {
		mapping.ProjectIdentifier = projectID
	}
	return s.mappings.Save(ctx, mapping)
}

// UserMappingData is the resolved mapping set for one user.
type UserMappingData struct {
	Default  *MappingIdentifiers
	Mappings []MappingIdentifiers
}

// MappingIdentifiers resolves a mapping's identifiers to display names.
type MappingIdentifiers struct {
	AccountIdentifier string
	AccountName       string
	OrgIdentifier     string
	OrgName           string
	ProjectIdentifier string
	ProjectName       string
}

// GetUserMappings returns all mappings for a user with resolved entity names,
// plus the one marked default. A user with zero mappings is an error.
func (s *Service) GetUserMappings(ctx context.Context, userID string) (*UserMappingData, error) {
	mappings, err := s.mappings.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find mappings: %w", err)
	}
	if len(mappings) == 0 {
		return nil, ErrUserMappingNotFound
	}

	data := &UserMappingData{}
	for _, m := range mappings {
		account, err := s.accounts.FindByIdentifier(ctx, m.AccountIdentifier)
		if err != nil {
			return nil, fmt.Errorf("resolve account %s: %w", m.AccountIdentifier, err)
		}
		org, err := s.orgs.FindByIdentifier(ctx, m.OrgIdentifier)
		if err != nil {
			return nil, fmt.Errorf("resolve org %s: %w", m.OrgIdentifier, err)
		}
		project, err := s.projects.FindByIdentifier(ctx, m.ProjectIdentifier)
		if err != nil {
			return nil, fmt.Errorf("resolve project %s: %w", m.ProjectIdentifier, err)
		}

		ids := MappingIdentifiers{
			AccountIdentifier: m.AccountIdentifier,
			AccountName:       account.Name,
			OrgIdentifier:     m.OrgIdentifier,
			OrgName:           org.Name,
			ProjectIdentifier: m.ProjectIdentifier,
			ProjectName:       project.Name,
		}
		data.Mappings = append(data.Mappings, ids)
		if m.IsDefault {
			ids := ids
			data.Default = &ids
		}
	}
	return data, nil
}
