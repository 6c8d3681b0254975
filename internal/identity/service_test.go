package identity

import (
	"context"
	"testing"

	"github.com/respondnow/respondnow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
	nextID  int
}

func newMemRepo() *memRepo {
	return &memRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *memRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.nextID++
	user.ID = string(rune('a' + r.nextID))
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *memRepo) DeleteByID(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}

func TestService_Signup(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	user, err := svc.Signup(context.Background(), SignupInput{
		UserID:   "alice",
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.Active, "new users start inactive")
	assert.True(t, user.ChangePasswordRequired)
	assert.NotZero(t, user.CreatedAt)

	// The stored hash verifies against the original password.
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret"))
	assert.NoError(t, err)
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{UserID: "alice", Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{UserID: "alice2", Email: "alice@example.com", Password: "y"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestService_HardDelete(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{UserID: "alice", Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(ctx, user.ID))

	// The email is free again: the same signup succeeds.
	_, err = svc.Signup(ctx, SignupInput{UserID: "alice", Email: "alice@example.com", Password: "x"})
	assert.NoError(t, err)
}

func TestService_HardDelete_NotFound(t *testing.T) {
	svc := NewService(newMemRepo())

	err := svc.HardDelete(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
