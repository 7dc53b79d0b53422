package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration. Values resolve in three
// layers: code defaults, then an optional TOML file, then environment
// variables. Fields carry no envconfig defaults so an absent variable
// never clobbers a file-provided value.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Catalog   CatalogConfig   `toml:"catalog"`
	History   HistoryConfig   `toml:"history"`
	Importer  ImporterConfig  `toml:"importer"`
	Auth      AuthConfig      `toml:"auth"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port"`
	Host string `envconfig:"HOST" toml:"host"`
}

// SandboxConfig holds JS runtime pool configuration.
type SandboxConfig struct {
	PoolSize     int `envconfig:"SANDBOX_POOL_SIZE" toml:"pool_size"`
	TimeoutMS    int `envconfig:"SANDBOX_TIMEOUT_MS" toml:"timeout_ms"`
	MaxCallStack int `envconfig:"SANDBOX_MAX_CALL_STACK" toml:"max_call_stack"`
}

// CatalogConfig holds snippet catalog configuration.
type CatalogConfig struct {
	Dir        string `envconfig:"CATALOG_DIR" toml:"dir"`
	CacheLimit int    `envconfig:"CATALOG_CACHE_LIMIT" toml:"cache_limit"`
}

// HistoryConfig holds run history configuration.
type HistoryConfig struct {
	Path       string `envconfig:"HISTORY_PATH" toml:"path"`
	Enabled    bool   `envconfig:"HISTORY_ENABLED" toml:"enabled"`
	MaxRecords int    `envconfig:"HISTORY_MAX_RECORDS" toml:"max_records"`
}

// ImporterConfig holds remote import configuration.
type ImporterConfig struct {
	Enabled   bool `envconfig:"IMPORTER_ENABLED" toml:"enabled"`
	MaxBodyKB int  `envconfig:"IMPORTER_MAX_BODY_KB" toml:"max_body_kb"`
	TimeoutMS int  `envconfig:"IMPORTER_TIMEOUT_MS" toml:"timeout_ms"`
}

// AuthConfig holds admin authentication configuration.
// AdminKeyHash is a bcrypt hash; an empty value disables admin routes.
type AuthConfig struct {
	AdminKeyHash string `envconfig:"ADMIN_KEY_HASH" toml:"admin_key_hash"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Sandbox: SandboxConfig{
			PoolSize:     8,
			TimeoutMS:    5000,
			MaxCallStack: 1024,
		},
		Catalog: CatalogConfig{
			Dir:        "./catalog",
			CacheLimit: 1000,
		},
		History: HistoryConfig{
			Path:       "./data/history.db",
			Enabled:    true,
			MaxRecords: 10000,
		},
		Importer: ImporterConfig{
			Enabled:   true,
			MaxBodyKB: 512,
			TimeoutMS: 10000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Load resolves configuration: defaults, then the TOML file at path if
// non-empty, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Sandbox.PoolSize < 1 {
		return fmt.Errorf("sandbox pool size must be at least 1, got %d", c.Sandbox.PoolSize)
	}
	if c.Sandbox.TimeoutMS < 1 {
		return fmt.Errorf("sandbox timeout must be positive, got %d", c.Sandbox.TimeoutMS)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history path cannot be empty when history is enabled")
	}
	return nil
}
