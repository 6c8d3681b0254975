package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, "default", cfg.Hierarchy.DefaultAccountID)
	assert.Equal(t, "admin@respondnow.io", cfg.Hierarchy.DefaultUserEmail)

	assert.True(t, cfg.Bootstrap.Enabled)
	assert.Equal(t, 3, cfg.Bootstrap.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Bootstrap.InitialDelay)
	assert.Equal(t, 1.5, cfg.Bootstrap.Multiplier)

	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 100, cfg.Notifications.Worker.BatchSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9000"
database:
  url: postgres://localhost:5432/respondnow
log:
  level: debug
bootstrap:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost:5432/respondnow", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Bootstrap.Enabled)

	// Untouched values keep their defaults.
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  url: postgres://from-file:5432/respondnow
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("RN_DATABASE__URL", "postgres://from-env:5432/respondnow")
	t.Setenv("RN_SERVER__METRICS_PORT", "9191")
	t.Setenv("RN_NOTIFICATIONS__ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://from-env:5432/respondnow", cfg.Database.URL)
	assert.Equal(t, "9191", cfg.Server.MetricsPort)
	assert.True(t, cfg.Notifications.Enabled)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	t.Setenv("RN_DATABASE__URL", "postgres://localhost:5432/respondnow")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/respondnow", cfg.Database.URL)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{}},
		{"bad log level", map[string]string{
			"RN_DATABASE__URL": "postgres://localhost:5432/respondnow",
			"RN_LOG__LEVEL":    "verbose",
		}},
		{"zero bootstrap attempts", map[string]string{
			"RN_DATABASE__URL":           "postgres://localhost:5432/respondnow",
			"RN_BOOTSTRAP__MAX_ATTEMPTS": "0",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
