package hierarchy

import (
	"context"
	"testing"

	"github.com/respondnow/respondnow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memory stores back the service tests with plain maps.

type memAccounts struct {
	byIdentifier map[string]*domain.Account
}

func (m *memAccounts) FindByIdentifier(_ context.Context, id string) (*domain.Account, error) {
	if a, ok := m.byIdentifier[id]; ok {
		return a, nil
	}
	return nil, ErrAccountNotFound
}

func (m *memAccounts) ExistsByIdentifier(_ context.Context, id string) (bool, error) {
	_, ok := m.byIdentifier[id]
	return ok, nil
}

func (m *memAccounts) Save(_ context.Context, a *domain.Account) (*domain.Account, error) {
	m.byIdentifier[a.AccountIdentifier] = a
	return a, nil
}

func (m *memAccounts) Delete(_ context.Context, id string) error {
	if _, ok := m.byIdentifier[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.byIdentifier, id)
	return nil
}

type memOrgs struct {
	byIdentifier map[string]*domain.Organization
}

func (m *memOrgs) FindByIdentifier(_ context.Context, id string) (*domain.Organization, error) {
	if o, ok := m.byIdentifier[id]; ok {
		return o, nil
	}
	return nil, ErrOrganizationNotFound
}

func (m *memOrgs) ExistsByIdentifier(_ context.Context, id string) (bool, error) {
	_, ok := m.byIdentifier[id]
	return ok, nil
}

func (m *memOrgs) Save(_ context.Context, o *domain.Organization) (*domain.Organization, error) {
	m.byIdentifier[o.OrgIdentifier] = o
	return o, nil
}

func (m *memOrgs) Delete(_ context.Context, id string) error {
	delete(m.byIdentifier, id)
	return nil
}

type memProjects struct {
	byIdentifier map[string]*domain.Project
}

func (m *memProjects) FindByIdentifier(_ context.Context, id string) (*domain.Project, error) {
	if p, ok := m.byIdentifier[id]; ok {
		return p, nil
	}
	return nil, ErrProjectNotFound
}

func (m *memProjects) ExistsByIdentifier(_ context.Context, id string) (bool, error) {
	_, ok := m.byIdentifier[id]
	return ok, nil
}

func (m *memProjects) Save(_ context.Context, p *domain.Project) (*domain.Project, error) {
	m.byIdentifier[p.ProjectIdentifier] = p
	return p, nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	delete(m.byIdentifier, id)
	return nil
}

type memMappings struct {
	mappings []*domain.UserMapping
}

func (m *memMappings) Save(_ context.Context, mapping *domain.UserMapping) (*domain.UserMapping, error) {
	m.mappings = append(m.mappings, mapping)
	return mapping, nil
}

func (m *memMappings) FindByUserID(_ context.Context, userID string) ([]*domain.UserMapping, error) {
	var out []*domain.UserMapping
	for _, mp := range m.mappings {
		if mp.UserID == userID {
			out = append(out, mp)
		}
	}
	return out, nil
}

func newMemService() (*Service, *memAccounts, *memOrgs, *memProjects, *memMappings) {
	accounts := &memAccounts{byIdentifier: make(map[string]*domain.Account)}
	orgs := &memOrgs{byIdentifier: make(map[string]*domain.Organization)}
	projects := &memProjects{byIdentifier: make(map[string]*domain.Project)}
	mappings := &memMappings{}
	return NewService(accounts, orgs, projects, mappings), accounts, orgs, projects, mappings
}

func TestService_CreateAccount_DuplicateIdentifier(t *testing.T) {
	svc, _, _, _, _ := newMemService()
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, &domain.Account{AccountIdentifier: "acme", Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, &domain.Account{AccountIdentifier: "acme", Name: "Other"})
	assert.ErrorIs(t, err, ErrIdentifierExists)
}

func TestService_DeleteAccount_NotFound(t *testing.T) {
	svc, _, _, _, _ := newMemService()

	err := svc.DeleteAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestService_CreateUserMapping_EmptyScopesStayUnset(t *testing.T) {
	svc, _, _, _, mappings := newMemService()

	m, err := svc.CreateUserMapping(context.Background(), "alice", "acme", "", "", false)
	require.NoError(t, err)

	assert.Equal(t, "acme", m.AccountIdentifier)
	assert.Empty(t, m.OrgIdentifier)
	assert.Empty(t, m.ProjectIdentifier)
	assert.NotZero(t, m.CreatedAt)
	assert.Len(t, mappings.mappings, 1)
}

func TestService_GetUserMappings(t *testing.T) {
	svc, accounts, orgs, projects, _ := newMemService()
	ctx := context.Background()

	accounts.byIdentifier["acme"] = &domain.Account{AccountIdentifier: "acme", Name: "Acme"}
	orgs.byIdentifier["eng"] = &domain.Organization{OrgIdentifier: "eng", Name: "Engineering"}
	projects.byIdentifier["web"] = &domain.Project{ProjectIdentifier: "web", Name: "Web"}

	_, err := svc.CreateUserMapping(ctx, "alice", "acme", "eng", "web", true)
	require.NoError(t, err)

	data, err := svc.GetUserMappings(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, data.Mappings, 1)
	assert.Equal(t, "Acme", data.Mappings[0].AccountName)
	assert.Equal(t, "Engineering", data.Mappings[0].OrgName)
	assert.Equal(t, "Web", data.Mappings[0].ProjectName)

	require.NotNil(t, data.Default)
	assert.Equal(t, "acme", data.Default.AccountIdentifier)
}

func TestService_GetUserMappings_NoMappings(t *testing.T) {
	svc, _, _, _, _ := newMemService()

	_, err := svc.GetUserMappings(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserMappingNotFound)
}
