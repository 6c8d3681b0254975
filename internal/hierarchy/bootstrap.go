package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/respondnow/respondnow/internal/domain"
	"github.com/respondnow/respondnow/internal/identity"
	"github.com/respondnow/respondnow/internal/pkg/metrics"
)

// UserProvisioner is the slice of the identity service the bootstrap needs.
type UserProvisioner interface {
	Signup(ctx context.Context, input identity.SignupInput) (*domain.User, error)
	HardDelete(ctx context.Context, id string) error
}

// BootstrapDefaults describes the default hierarchy created on first start.
type BootstrapDefaults struct {
	AccountIdentifier string
	AccountName       string
	OrgIdentifier     string
	OrgName           string
	ProjectIdentifier string
	ProjectName       string

	UserID       string
	UserName     string
	UserEmail    string
	UserPassword string
}

// RetryPolicy bounds retries of transient failures during bootstrap.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the historical bootstrap behaviour: three
// attempts, two seconds before the second one, growing by half each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   1.5,
	}
}

// Bootstrap provisions the default user and hierarchy on startup. The flow is
// a saga: user, account, organization, project, user mapping, in that order.
// A failure after the user step compensates everything created so far in
// reverse order. The whole run is best effort and must never take the host
// process down.
type Bootstrap struct {
	users     UserProvisioner
	hierarchy *Service
	defaults  BootstrapDefaults
	retry     RetryPolicy

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewBootstrap creates a bootstrap runner.
func NewBootstrap(users UserProvisioner, hierarchy *Service, defaults BootstrapDefaults, retry RetryPolicy) *Bootstrap {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Bootstrap{
		users:     users,
		hierarchy: hierarchy,
		defaults:  defaults,
		retry:     retry,
		sleep:     time.Sleep,
	}
}

// Run executes the bootstrap saga. When the default user already exists the
// run is a no-op: a previous start has done the work.
func (b *Bootstrap) Run(ctx context.Context) error {
	user, err := b.createUser(ctx)
	if errors.Is(err, identity.ErrEmailExists) {
		slog.Info("default user already exists, skipping bootstrap",
			"email", b.defaults.UserEmail)
		return nil
	}
	if err != nil {
		metrics.RecordBootstrapStep("user", false)
		return fmt.Errorf("bootstrap user: %w", err)
	}
	metrics.RecordBootstrapStep("user", true)

	if err := b.createHierarchy(ctx, user); err != nil {
		return err
	}

	slog.Info("default hierarchy bootstrap complete",
		"account", b.defaults.AccountIdentifier,
		"org", b.defaults.OrgIdentifier,
		"project", b.defaults.ProjectIdentifier,
		"user", user.UserID)
	return nil
}

func (b *Bootstrap) createHierarchy(ctx context.Context, user *domain.User) error {
	now := time.Now().Unix()

	account := &domain.Account{
		AccountIdentifier: b.defaults.AccountIdentifier,
		Name:              b.defaults.AccountName,
		CreatedAt:         now,
		CreatedBy:         user.UserID,
	}
	if _, err := withRetry(ctx, b, "account", func(ctx context.Context) (*domain.Account, error) {
		return b.hierarchy.CreateAccount(ctx, account)
	}); err != nil {
		metrics.RecordBootstrapStep("account", false)
		b.compensate(ctx, user, false, false, false)
		return fmt.Errorf("bootstrap account: %w", err)
	}
	metrics.RecordBootstrapStep("account", true)

	org := &domain.Organization{
		OrgIdentifier:     b.defaults.OrgIdentifier,
		AccountIdentifier: b.defaults.AccountIdentifier,
		Name:              b.defaults.OrgName,
		CreatedAt:         now,
		CreatedBy:         user.UserID,
	}
	if _, err := withRetry(ctx, b, "organization", func(ctx context.Context) (*domain.Organization, error) {
		return b.hierarchy.CreateOrganization(ctx, org)
	}); err != nil {
		metrics.RecordBootstrapStep("organization", false)
		b.compensate(ctx, user, true, false, false)
		return fmt.Errorf("bootstrap organization: %w", err)
	}
	metrics.RecordBootstrapStep("organization", true)

	project := &domain.Project{
		ProjectIdentifier: b.defaults.ProjectIdentifier,
		OrgIdentifier:     b.defaults.OrgIdentifier,
		AccountIdentifier: b.defaults.AccountIdentifier,
		Name:              b.defaults.ProjectName,
		CreatedAt:         now,
		CreatedBy:         user.UserID,
	}
	if _, err := withRetry(ctx, b, "project", func(ctx context.Context) (*domain.Project, error) {
		return b.hierarchy.CreateProject(ctx, project)
	}); err != nil {
		metrics.RecordBootstrapStep("project", false)
		b.compensate(ctx, user, true, true, false)
		return fmt.Errorf("bootstrap project: %w", err)
	}
	metrics.RecordBootstrapStep("project", true)

	// The mapping is the last step and is not retried: if it fails the whole
	// hierarchy is rolled back and the next start tries again from scratch.
	if _, err := b.hierarchy.CreateUserMapping(ctx, user.UserID,
		b.defaults.AccountIdentifier, b.defaults.OrgIdentifier, b.defaults.ProjectIdentifier, true); err != nil {
		metrics.RecordBootstrapStep("mapping", false)
		b.compensate(ctx, user, true, true, true)
		return fmt.Errorf("bootstrap user mapping: %w", err)
	}
	metrics.RecordBootstrapStep("mapping", true)
	return nil
}

func (b *Bootstrap) createUser(ctx context.Context) (*domain.User, error) {
	return withRetry(ctx, b, "user", func(ctx context.Context) (*domain.User, error) {
		return b.users.Signup(ctx, identity.SignupInput{
			UserID:   b.defaults.UserID,
			Name:     b.defaults.UserName,
			Email:    b.defaults.UserEmail,
			Password: b.defaults.UserPassword,
		})
	})
}

// compensate undoes created entities in reverse order. Hierarchy entities are
// soft-deleted; the user row is removed outright so the next start can run
// the saga again. Compensation failures are logged and swallowed.
func (b *Bootstrap) compensate(ctx context.Context, user *domain.User, account, org, project bool) {
	if project {
		if err := b.hierarchy.DeleteProject(ctx, b.defaults.ProjectIdentifier); err != nil {
			slog.Error("bootstrap compensation failed",
				"step", "project", "identifier", b.defaults.ProjectIdentifier, "error", err)
		}
		metrics.RecordBootstrapCompensation("project")
	}
	if org {
		if err := b.hierarchy.DeleteOrganization(ctx, b.defaults.OrgIdentifier); err != nil {
			slog.Error("bootstrap compensation failed",
				"step", "organization", "identifier", b.defaults.OrgIdentifier, "error", err)
		}
		metrics.RecordBootstrapCompensation("organization")
	}
	if account {
		if err := b.hierarchy.DeleteAccount(ctx, b.defaults.AccountIdentifier); err != nil {
			slog.Error("bootstrap compensation failed",
				"step", "account", "identifier", b.defaults.AccountIdentifier, "error", err)
		}
		metrics.RecordBootstrapCompensation("account")
	}
	if err := b.users.HardDelete(ctx, user.ID); err != nil {
		slog.Error("bootstrap compensation failed",
			"step", "user", "userId", user.UserID, "error", err)
	}
	metrics.RecordBootstrapCompensation("user")
}

// withRetry runs fn up to the policy's attempt budget, sleeping with
// exponential backoff between attempts. Only retryable errors are retried.
func withRetry[T any](ctx context.Context, b *Bootstrap, step string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := b.retry.InitialDelay
	var err error
	for attempt := 1; attempt <= b.retry.MaxAttempts; attempt++ {
		var out T
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryable(err) || attempt == b.retry.MaxAttempts {
			break
		}
		slog.Warn("bootstrap step failed, retrying",
			"step", step, "attempt", attempt, "delay", delay, "error", err)
		b.sleep(delay)
		delay = time.Duration(float64(delay) * b.retry.Multiplier)
	}
	return zero, err
}

func isRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
