// Package config loads service configuration from the environment on top of
// compiled defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

var ErrConfigRequired = errors.New("required configuration key missing")

// Config keys are the lower-cased environment variable names, e.g.
// JWT_SECRET -> jwt_secret.
type Config struct {
	Environment string `koanf:"app_env"`
	Port        string `koanf:"port"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	DatabaseURL       string        `koanf:"database_url"`
	DBMaxOpenConns    int           `koanf:"db_max_open_conns"`
	DBMaxIdleConns    int           `koanf:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`
	DBConnMaxIdleTime time.Duration `koanf:"db_conn_max_idle_time"`
	RunMigrations     bool          `koanf:"run_migrations"`

	// RunMigrationsOnStartup replaces RunMigrations for the serverless
	// entrypoint, which builds a runtime on every cold start.
	RunMigrationsOnStartup bool `koanf:"run_migrations_on_startup"`

	JWTSecret       string        `koanf:"jwt_secret"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`
	LoginLocale     string        `koanf:"login_locale"`

	AdminUsername string `koanf:"admin_username"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	SentryDSN    string `koanf:"sentry_dsn"`
	OTELEndpoint string `koanf:"otel_endpoint"`
}

type LoadOptions struct {
	// DotEnv loads a .env file from the working directory first, if present.
	DotEnv bool
}

func defaults() *Config {
	return &Config{
		Environment:       "development",
		Port:              "8080",
		LogLevel:          "info",
		LogFormat:         "json",
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 30 * time.Minute,
		DBConnMaxIdleTime: 10 * time.Minute,
		RunMigrations:     true,
		AccessTokenTTL:    5 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		LoginLocale:       "en",
	}
}

// Load reads configuration with the precedence environment > .env > defaults.
func Load(opts LoadOptions) (*Config, error) {
	if opts.DotEnv {
		_ = godotenv.Load()
	}

	cfg := defaults()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	if c.DBMaxOpenConns <= 0 {
		c.DBMaxOpenConns = 10
	}
	if c.DBMaxIdleConns <= 0 {
		c.DBMaxIdleConns = 5
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL", ErrConfigRequired)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET", ErrConfigRequired)
	}
	if c.AccessTokenTTL < time.Second || c.RefreshTokenTTL < time.Second {
		return fmt.Errorf("token lifetimes must be at least 1s: access=%s refresh=%s", c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
