// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers understood by the storage package.
const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Storage Storage

	// SessionIdleTimeout is how long an untouched widget is kept before its
	// pending files and previews are dropped.
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	// MaxMemoryBytes bounds the in-memory part of multipart parsing; larger
	// bodies spill to temporary files.
	MaxMemoryBytes int64 `env:"MAX_MEMORY_BYTES" envDefault:"33554432"`
}

// Storage holds the object storage settings. Endpoint, Region, AccessKey,
// SecretKey and Bucket are all required for an upload to succeed, but they
// are not marked required here: the page still serves without them.
type Storage struct {
	Driver       string `env:"STORAGE_DRIVER" envDefault:"minio"`
	Endpoint     string `env:"STORAGE_ENDPOINT"` // full URL, e.g. "http://localhost:9000"
	Region       string `env:"STORAGE_REGION"`
	AccessKey    string `env:"STORAGE_ACCESS_KEY"`
	SecretKey    string `env:"STORAGE_SECRET_KEY"`
	Bucket       string `env:"STORAGE_BUCKET"`
	CreateBucket bool   `env:"STORAGE_CREATE_BUCKET" envDefault:"false"`
}

// Load reads configuration from a .env file (if present) and environment
// variables. Values that do not parse are an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SessionIdleTimeout <= 0 {
		return nil, fmt.Errorf("parse config: SESSION_IDLE_TIMEOUT must be positive, got %s", cfg.SessionIdleTimeout)
	}
	if cfg.MaxMemoryBytes <= 0 {
		return nil, fmt.Errorf("parse config: MAX_MEMORY_BYTES must be positive, got %d", cfg.MaxMemoryBytes)
	}
	return &cfg, nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Missing returns the environment keys of required storage settings that are
// empty, in a stable order.
func (s Storage) Missing() []string {
	var missing []string
	for _, f := range []struct {
		key, val string
	}{
		{"STORAGE_ENDPOINT", s.Endpoint},
		{"STORAGE_REGION", s.Region},
		{"STORAGE_ACCESS_KEY", s.AccessKey},
		{"STORAGE_SECRET_KEY", s.SecretKey},
		{"STORAGE_BUCKET", s.Bucket},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}
