// Package config handles loading and validating the transitarchive
// service configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the transitarchive service.
type Config struct {
	Port                string          `yaml:"port"`
	DatabaseURL         string          `yaml:"database_url"`
	APIKey              string          `yaml:"api_key"`      // inbound API key; empty disables auth
	FeedAPIKey          string          `yaml:"feed_api_key"` // upstream feed provider key
	FetchTimeoutSeconds int             `yaml:"fetch_timeout_seconds" validate:"gte=0"`
	Scheduler           SchedulerConfig `yaml:"scheduler"`
	Storage             StorageConfig   `yaml:"storage"`
}

// SchedulerConfig controls the periodic ingestion trigger.
type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds" validate:"gte=1"`
}

// StorageConfig selects and configures the archive blob store backend.
type StorageConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=local s3 gcs"`
	LocalDir string `yaml:"local_dir"`
	Bucket   string `yaml:"bucket"`
	// S3-compatible settings; Endpoint covers R2 and MinIO.
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:        "8080",
		DatabaseURL: "postgres://localhost:5432/transitarchive?sslmode=disable",
		Scheduler: SchedulerConfig{
			Enabled:         true,
			IntervalSeconds: 30,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "/tmp/transitarchive-data",
		},
	}
}

// Load reads a config file from the given path, applies environment
// overrides, and validates the result. If the file does not exist, the
// default config (plus overrides) is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables. Environment
// always wins so deployments can keep secrets out of the config file.
func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.APIKey, "API_KEY")
	setString(&c.FeedAPIKey, "FEED_API_KEY")
	setInt(&c.FetchTimeoutSeconds, "FETCH_TIMEOUT_SECONDS")
	setInt(&c.Scheduler.IntervalSeconds, "SCHEDULER_INTERVAL_SECONDS")
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Scheduler.Enabled = parsed
		}
	}
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.LocalDir, "STORAGE_LOCAL_DIR")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.Region, "STORAGE_REGION")
	setString(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
