package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the NL query engine.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values. Secrets (database
// password, LLM API key) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// LLM generator configuration
	LLM LLMConfig `yaml:"llm"`

	// NL engine configuration
	NL NLConfig `yaml:"nl"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"kitchen"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"kitchen"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// LLMConfig holds text-generation service configuration.
// Provider selects the client implementation: "openai" works with any
// OpenAI-compatible endpoint, "anthropic" uses the Anthropic Messages API.
type LLMConfig struct {
	Provider       string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint       string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"30"`
}

// Timeout returns the per-call deadline for generation requests.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NLConfig holds natural-language engine settings.
type NLConfig struct {
	// ConfigDir is the directory holding shared resources and the intent
	// catalogue. A missing required file under it is startup-fatal.
	ConfigDir string `yaml:"config_dir" env:"NL_CONFIG_DIR" env-default:"nl"`

	// Timezone is the operational timezone used to resolve "today",
	// weekday names and relative ranges, and is echoed into the
	// generation prompt.
	Timezone string `yaml:"timezone" env:"NL_TIMEZONE" env-default:"Asia/Kolkata"`

	// Rate limiting: RateLimitMax requests per RateLimitWindowSeconds
	// sliding window, per caller.
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds" env:"NL_RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
	RateLimitMax           int `yaml:"rate_limit_max" env:"NL_RATE_LIMIT_MAX" env-default:"30"`
}

// RateLimitWindow returns the sliding window duration.
func (c *NLConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// Load reads configuration from the given YAML file with environment
// variable overrides. The version parameter is injected at build time.
func Load(version, path string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.NL.RateLimitMax <= 0 {
		return fmt.Errorf("nl.rate_limit_max must be positive, got %d", c.NL.RateLimitMax)
	}
	if c.NL.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("nl.rate_limit_window_seconds must be positive, got %d", c.NL.RateLimitWindowSeconds)
	}
	if _, err := time.LoadLocation(c.NL.Timezone); err != nil {
		return fmt.Errorf("nl.timezone %q is not a valid location: %w", c.NL.Timezone, err)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
