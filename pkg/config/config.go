package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-schema/pkg/models"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

// Bounds for normalization.max_attributes. The candidate-key search is
// exponential in the attribute count.
const (
	MinMaxAttributes = 1
	MaxMaxAttributes = 24
)

// Config holds all configuration for ekaya-schema.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database URLs) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3450"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Schema        SchemaConfig        `yaml:"schema"`
	Normalization NormalizationConfig `yaml:"normalization"`
	MCP           MCPConfig           `yaml:"mcp"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
}

// SchemaConfig holds the ERD to SQL pipeline defaults.
type SchemaConfig struct {
	DefaultDialect string `yaml:"default_dialect" env:"SCHEMA_DEFAULT_DIALECT" env-default:"postgresql"`
	IncludeDrop    bool   `yaml:"include_drop" env:"SCHEMA_INCLUDE_DROP" env-default:"false"`
	// AllowErrors emits SQL even when validation reports errors. cleanenv
	// replaces a false value with env-default, so flags here default to false.
	AllowErrors bool `yaml:"allow_errors" env:"SCHEMA_ALLOW_ERRORS" env-default:"false"`
}

// NormalizationConfig holds normalization defaults.
type NormalizationConfig struct {
	DefaultType string `yaml:"default_type" env:"NORMALIZATION_DEFAULT_TYPE" env-default:"BCNF"`
	// MaxAttributes skips tables wider than this instead of searching for keys.
	MaxAttributes int `yaml:"max_attributes" env:"NORMALIZATION_MAX_ATTRIBUTES" env-default:"16"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Disabled bool `yaml:"disabled" env:"MCP_DISABLED" env-default:"false"`
}

// ServerConfig holds HTTP server limits.
type ServerConfig struct {
	MaxRequestBytes int64 `yaml:"max_request_bytes" env:"SERVER_MAX_REQUEST_BYTES" env-default:"1048576"`
}

// DatabaseConfig holds the optional target database used by migrate and apply.
type DatabaseConfig struct {
	URL string `yaml:"-" env:"DATABASE_URL"` // Secret - not in YAML
}

// Load reads configuration from path (config.yaml when empty) with
// environment variable overrides. A missing file is not an error; defaults
// and environment variables are used instead.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{
		Version: version,
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validate checks and canonicalizes enum-like fields.
func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}

	dialect, err := models.ParseDialect(c.Schema.DefaultDialect)
	if err != nil {
		return fmt.Errorf("schema.default_dialect: %w", err)
	}
	c.Schema.DefaultDialect = string(dialect)

	nt, err := models.ParseNormalizationType(c.Normalization.DefaultType)
	if err != nil {
		return fmt.Errorf("normalization.default_type: %w", err)
	}
	c.Normalization.DefaultType = string(nt)

	if n := c.Normalization.MaxAttributes; n < MinMaxAttributes || n > MaxMaxAttributes {
		return fmt.Errorf("normalization.max_attributes must be between %d and %d, got %d",
			MinMaxAttributes, MaxMaxAttributes, n)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.Server.MaxRequestBytes <= 0 {
		return fmt.Errorf("server.max_request_bytes must be positive")
	}
	return nil
}

// Dialect returns the validated default dialect.
func (c *Config) Dialect() models.Dialect {
	return models.Dialect(c.Schema.DefaultDialect)
}

// NormalizationType returns the validated default normalization type.
func (c *Config) NormalizationType() models.NormalizationType {
	return models.NormalizationType(c.Normalization.DefaultType)
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// BlockOnErrors reports whether generation stops on validation errors.
func (c *Config) BlockOnErrors() bool {
	return !c.Schema.AllowErrors
}

// MCPEnabled reports whether the /mcp endpoint is served.
func (c *Config) MCPEnabled() bool {
	return !c.MCP.Disabled
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
