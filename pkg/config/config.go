// Package config loads engine configuration from YAML and environment.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the ingestion engine.
// Values can come from a YAML file (config.yaml) or environment variables;
// environment always wins. Secrets (passwords, keys) come from environment only.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Port    string `yaml:"port" env:"PORT" env-default:"8090"`
	Version string `yaml:"-"` // set at load time via ldflags

	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Poller   PollerConfig   `yaml:"poller"`

	// SecretsKey encrypts datasource credentials at rest. 32 bytes, base64
	// encoded (openssl rand -base64 32). The engine refuses to start without it.
	SecretsKey string `yaml:"-" env:"SECRETS_KEY"`
}

// DatabaseConfig holds the engine's own PostgreSQL metadata store settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"reef"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // secret, env only
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"reef_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// URL renders the connection string with credentials escaped.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.SSLMode,
	)
}

// StorageConfig selects and configures the stored-data backend.
type StorageConfig struct {
	// Backend is "s3" or "local".
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"local"`

	// S3 settings.
	Bucket   string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:""`
	Region   string `yaml:"region" env:"STORAGE_REGION" env-default:"us-east-1"`
	Endpoint string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:""` // non-AWS S3 (minio etc.)

	// Local settings.
	Dir string `yaml:"dir" env:"STORAGE_DIR" env-default:"./data"`
}

// PollerConfig tunes the scheduled poll cycle.
type PollerConfig struct {
	// IntervalSeconds between cycle starts. A tick that arrives while the
	// previous cycle is still running is skipped.
	IntervalSeconds int `yaml:"interval_seconds" env:"POLL_INTERVAL_SECONDS" env-default:"900"`
	// Workers bounds how many sources are polled concurrently.
	Workers int `yaml:"workers" env:"POLL_WORKERS" env-default:"4"`
	// MaxAttempts per source poll, including the first.
	MaxAttempts int `yaml:"max_attempts" env:"POLL_MAX_ATTEMPTS" env-default:"3"`
	// SampleSize bounds how many records schema inference examines.
	SampleSize int `yaml:"sample_size" env:"POLL_SAMPLE_SIZE" env-default:"100"`
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	cfg.Version = version

	if cfg.SecretsKey == "" {
		return nil, fmt.Errorf("SECRETS_KEY is required")
	}
	if cfg.Storage.Backend == "s3" && cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required when storage backend is s3")
	}

	return cfg, nil
}
