package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration.
type Config struct {
	Server  ServerConfig
	Fetch   FetchConfig
	Sandbox SandboxConfig
	Logging LogConfig
}

// ServerConfig holds the resource-host daemon configuration.
type ServerConfig struct {
	Port string `envconfig:"HOIST_PORT" default:"8300"`
	Host string `envconfig:"HOIST_HOST" default:"0.0.0.0"`
}

// FetchConfig holds resource fetch configuration.
type FetchConfig struct {
	Timeout    time.Duration `envconfig:"HOIST_FETCH_TIMEOUT" default:"30s"`
	RetryMax   int           `envconfig:"HOIST_FETCH_RETRY_MAX" default:"3"`
	RetryWait  time.Duration `envconfig:"HOIST_FETCH_RETRY_WAIT" default:"1s"`
	RatePerSec float64       `envconfig:"HOIST_FETCH_RATE" default:"0"`
}

// SandboxConfig holds sandbox runtime configuration.
type SandboxConfig struct {
	Timeout  time.Duration `envconfig:"HOIST_SANDBOX_TIMEOUT" default:"5s"`
	PoolSize int           `envconfig:"HOIST_SANDBOX_POOL" default:"4"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"HOIST_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"HOIST_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
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
			Port: "8300",
			Host: "0.0.0.0",
		},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			RetryMax:  3,
			RetryWait: 1 * time.Second,
		},
		Sandbox: SandboxConfig{
			Timeout:  5 * time.Second,
			PoolSize: 4,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
