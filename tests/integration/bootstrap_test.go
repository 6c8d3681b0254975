//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_CreatesDefaultHierarchy(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testApp.Bootstrap().Run(ctx))

	// The admin user exists and is mapped into the default hierarchy.
	var email string
	var active bool
	err := testDB.QueryRow(ctx,
		`SELECT email, active FROM users WHERE user_id = $1`, "admin",
	).Scan(&email, &active)
	require.NoError(t, err)
	assert.Equal(t, "admin@respondnow.io", email)
	assert.False(t, active, "bootstrap users start inactive")

	data, err := testApp.HierarchyService().GetUserMappings(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, data.Mappings, 1)
	assert.Equal(t, "Default Account", data.Mappings[0].AccountName)
	assert.Equal(t, "Default Org", data.Mappings[0].OrgName)
	assert.Equal(t, "Default Project", data.Mappings[0].ProjectName)
	require.NotNil(t, data.Default)
	assert.Equal(t, "default", data.Default.AccountIdentifier)
}

func TestBootstrap_IdempotentRerun(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, testApp.Bootstrap().Run(ctx))
	require.NoError(t, testApp.Bootstrap().Run(ctx))

	var users, accounts, mappings int
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE email = $1`, "admin@respondnow.io").Scan(&users))
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT count(*) FROM accounts WHERE account_identifier = $1 AND NOT removed`, "default").Scan(&accounts))
	require.NoError(t, testDB.QueryRow(ctx,
		`SELECT count(*) FROM user_mappings WHERE user_id = $1 AND NOT removed`, "admin").Scan(&mappings))

	assert.Equal(t, 1, users)
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, mappings)
}

func TestUserMapping_SingleDefaultPerUser(t *testing.T) {
	ctx := context.Background()

	_, err := testApp.HierarchyService().CreateUserMapping(ctx, "dupdefault", "default", "default", "default", true)
	require.NoError(t, err)

	// A second default mapping for the same user violates the partial unique
	// index on live default rows.
	_, err = testApp.HierarchyService().CreateUserMapping(ctx, "dupdefault", "default", "default", "default", true)
	assert.Error(t, err)

	// A non-default second mapping is fine.
	_, err = testApp.HierarchyService().CreateUserMapping(ctx, "dupdefault", "default", "", "", false)
	assert.NoError(t, err)
}
