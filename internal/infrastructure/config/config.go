package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Proxy     ProxyConfig
	Storage   StorageConfig
	History   HistoryConfig
	Policy    PolicyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8000"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	AllowedOrigins []string      `envconfig:"CORS_ORIGINS" default:"*"`
	Compress       bool          `envconfig:"SERVER_GZIP" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ProxyConfig holds relay fetch configuration.
type ProxyConfig struct {
	// BackendTimeout bounds each relay attempt, not the whole chain.
	BackendTimeout  time.Duration `envconfig:"PROXY_BACKEND_TIMEOUT" default:"10s"`
	UserAgent       string        `envconfig:"PROXY_USER_AGENT" default:"Mozilla/5.0 (compatible; Nebula/1.0)"`
	MaxBodyBytes    int64         `envconfig:"PROXY_MAX_BODY_BYTES" default:"10485760"`
	RateLimit       float64       `envconfig:"PROXY_RATE_LIMIT" default:"0"`
	BreakerFailures uint32        `envconfig:"PROXY_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"PROXY_BREAKER_COOLDOWN" default:"30s"`
}

// StorageConfig selects the key-value store.
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	Path   string `envconfig:"STORAGE_PATH" default:"nebula.db"`
}

// HistoryConfig bounds persisted browsing history.
type HistoryConfig struct {
	Limit int `envconfig:"HISTORY_LIMIT" default:"1000"`
}

// PolicyConfig points at the optional classification/relay policy file.
type PolicyConfig struct {
	File string `envconfig:"POLICY_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads variables from a dotenv file, then the environment.
// Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	}
	return Load()
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{"*"},
			Compress:       true,
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
		Proxy: ProxyConfig{
			BackendTimeout:  10 * time.Second,
			UserAgent:       "Mozilla/5.0 (compatible; Nebula/1.0)",
			MaxBodyBytes:    10 << 20,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "nebula.db",
		},
		History: HistoryConfig{
			Limit: 1000,
		},
	}
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("%w: PORT is empty", ErrInvalidConfig)
	}
	if c.Proxy.BackendTimeout <= 0 {
		return fmt.Errorf("%w: PROXY_BACKEND_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.Proxy.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: PROXY_MAX_BODY_BYTES must be positive", ErrInvalidConfig)
	}
	if c.Proxy.RateLimit < 0 {
		return fmt.Errorf("%w: PROXY_RATE_LIMIT cannot be negative", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: STORAGE_PATH is required for sqlite", ErrInvalidConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("%w: HISTORY_LIMIT must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
