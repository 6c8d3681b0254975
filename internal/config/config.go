// Package config loads application configuration from an optional YAML file
// and RN_ prefixed environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	Hierarchy     HierarchyConfig     `koanf:"hierarchy"`
	Bootstrap     BootstrapConfig     `koanf:"bootstrap"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL configuration.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// HierarchyConfig describes the default hierarchy and user created on first
// start, and the scope stamped onto incidents created without one.
type HierarchyConfig struct {
	DefaultAccountID   string `koanf:"default_account_id"`
	DefaultAccountName string `koanf:"default_account_name"`
	DefaultOrgID       string `koanf:"default_org_id"`
	DefaultOrgName     string `koanf:"default_org_name"`
	DefaultProjectID   string `koanf:"default_project_id"`
	DefaultProjectName string `koanf:"default_project_name"`

	DefaultUserID       string `koanf:"default_user_id"`
	DefaultUserName     string `koanf:"default_user_name"`
	DefaultUserEmail    string `koanf:"default_user_email"`
	DefaultUserPassword string `koanf:"default_user_password"`
}

// BootstrapConfig bounds retries of the startup bootstrap saga.
type BootstrapConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxAttempts  int           `koanf:"max_attempts" validate:"min=1"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	Multiplier   float64       `koanf:"multiplier" validate:"min=1"`
}

// NotificationsConfig configures chat webhook delivery.
type NotificationsConfig struct {
	Enabled       bool    `koanf:"enabled"`
	WebhookURL    string  `koanf:"webhook_url"`
	Username      string  `koanf:"username"`
	RatePerSecond float64 `koanf:"rate_per_second"`

	Worker WorkerConfig `koanf:"worker"`
	Retry  RetryConfig  `koanf:"retry"`
}

// WorkerConfig configures the outbox worker.
type WorkerConfig struct {
	BatchSize    int           `koanf:"batch_size" validate:"min=1"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// RetryConfig configures delivery retry backoff.
type RetryConfig struct {
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier" validate:"min=1"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Hierarchy: HierarchyConfig{
			DefaultAccountID:    "default",
			DefaultAccountName:  "Default Account",
			DefaultOrgID:        "default",
			DefaultOrgName:      "Default Org",
			DefaultProjectID:    "default",
			DefaultProjectName:  "Default Project",
			DefaultUserID:       "admin",
			DefaultUserName:     "Admin",
			DefaultUserEmail:    "admin@respondnow.io",
			DefaultUserPassword: "respondnow",
		},
		Bootstrap: BootstrapConfig{
			Enabled:      true,
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			Multiplier:   1.5,
		},
		Notifications: NotificationsConfig{
			Enabled:       false,
			Username:      "RespondNow",
			RatePerSecond: 1,
			Worker: WorkerConfig{
				BatchSize:    100,
				PollInterval: 5 * time.Second,
			},
			Retry: RetryConfig{
				InitialBackoff:    1 * time.Second,
				MaxBackoff:        5 * time.Minute,
				BackoffMultiplier: 2.0,
			},
		},
	}
}

// Load reads configuration from the file at path (when it exists) and from
// RN_ prefixed environment variables, layered over the defaults. Double
// underscore separates sections: RN_DATABASE__URL maps to database.url,
// RN_SERVER__METRICS_PORT to server.metrics_port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider("RN_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "RN_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
