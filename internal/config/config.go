// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "github-activity-service/internal/errors"
)

// Service names accepted in SERVICES.
const (
	ServiceUsers   = "users"
	ServiceRepos   = "repos"
	ServiceCommits = "commits"
	ServicePRs     = "prs"
)

// Sync guard backends accepted in SYNC_GUARD.
const (
	GuardMemory   = "memory"
	GuardPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	HTTPAddr       string   `mapstructure:"HTTP_ADDR"`
	DBURL          string   `mapstructure:"DB_URL"`
	MigrationsPath string   `mapstructure:"MIGRATIONS_PATH"`
	Services       []string `mapstructure:"SERVICES"`

	GithubToken             string        `mapstructure:"GITHUB_TOKEN"`
	GithubBaseURL           string        `mapstructure:"GITHUB_BASE_URL"`
	GithubRequestTimeout    time.Duration `mapstructure:"GITHUB_REQUEST_TIMEOUT"`
	SecondaryRateLimitSleep time.Duration `mapstructure:"SECONDARY_RATE_LIMIT_SLEEP"`

	PerPage         int           `mapstructure:"PER_PAGE"`
	MaxPages        int           `mapstructure:"MAX_PAGES"`
	RepoPageDelay   time.Duration `mapstructure:"REPO_PAGE_DELAY"`
	CommitPageDelay time.Duration `mapstructure:"COMMIT_PAGE_DELAY"`
	PRPageDelay     time.Duration `mapstructure:"PR_PAGE_DELAY"`

	RetryInitialInterval time.Duration `mapstructure:"RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     time.Duration `mapstructure:"RETRY_MAX_INTERVAL"`
	RetryMaxAttempts     int           `mapstructure:"RETRY_MAX_ATTEMPTS"`

	SyncConcurrency   int           `mapstructure:"SYNC_CONCURRENCY"`
	UpsertConcurrency int           `mapstructure:"UPSERT_CONCURRENCY"`
	SyncTimeout       time.Duration `mapstructure:"SYNC_TIMEOUT"`
	SyncGuard         string        `mapstructure:"SYNC_GUARD"`
}

var defaults = map[string]any{
	"LOG_LEVEL":       "info",
	"HTTP_ADDR":       ":8080",
	"DB_URL":          "",
	"MIGRATIONS_PATH": "file://migrations",
	"SERVICES":        "users,repos,commits,prs",

	"GITHUB_TOKEN":               "",
	"GITHUB_BASE_URL":            "",
	"GITHUB_REQUEST_TIMEOUT":     "30s",
	"SECONDARY_RATE_LIMIT_SLEEP": "1h",

	"PER_PAGE":          100,
	"MAX_PAGES":         1000,
	"REPO_PAGE_DELAY":   "500ms",
	"COMMIT_PAGE_DELAY": "1s",
	"PR_PAGE_DELAY":     "1s",

	"RETRY_INITIAL_INTERVAL": "5s",
	"RETRY_MAX_INTERVAL":     "1m",
	"RETRY_MAX_ATTEMPTS":     5,

	"SYNC_CONCURRENCY":   5,
	"UPSERT_CONCURRENCY": 10,
	"SYNC_TIMEOUT":       "30m",
	"SYNC_GUARD":         GuardMemory,
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		return errors.New("PER_PAGE must be between 1 and 100")
	}
	if c.MaxPages < 1 {
		return errors.New("MAX_PAGES must be positive")
	}
	if c.RetryMaxAttempts < 0 {
		return errors.New("RETRY_MAX_ATTEMPTS must not be negative")
	}
	if c.SyncConcurrency < 1 || c.UpsertConcurrency < 1 {
		return errors.New("SYNC_CONCURRENCY and UPSERT_CONCURRENCY must be positive")
	}
	if c.SyncGuard != GuardMemory && c.SyncGuard != GuardPostgres {
		return errors.New("SYNC_GUARD must be either 'memory' or 'postgres'")
	}

	services := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		s = strings.TrimSpace(s)
		switch s {
		case "":
			continue
		case ServiceUsers, ServiceRepos, ServiceCommits, ServicePRs:
			services = append(services, s)
		default:
			return &custom_errors.ErrInvalidService{Service: s}
		}
	}
	if len(services) == 0 {
		return errors.New("SERVICES must enable at least one service")
	}
	c.Services = services
	return nil
}

// Enabled reports whether the named service should be mounted.
func (c *Config) Enabled(service string) bool {
	for _, s := range c.Services {
		if s == service {
			return true
		}
	}
	return false
}
