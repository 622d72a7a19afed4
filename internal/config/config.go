// Package config loads the server configuration from a YAML file and
// SEPHIRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// AuthConfig tunes the embedded auth backend and the per-browser state.
type AuthConfig struct {
	RequireConfirmation bool          `yaml:"require_confirmation" env:"REQUIRE_CONFIRMATION"`
	SessionTTL          time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	MinPasswordLength   int           `yaml:"min_password_length" env:"MIN_PASSWORD_LENGTH"`
	BrowserIdleTTL      time.Duration `yaml:"browser_idle_ttl" env:"BROWSER_IDLE_TTL"`
	// MaxBrowsers caps the per-browser auth states kept in memory. The
	// least recently seen browser is dropped first and restores its
	// session from the cookie on its next request.
	MaxBrowsers int `yaml:"max_browsers" env:"MAX_BROWSERS"`
	// GateWait is how long an admin request waits for the auth state to
	// settle before the loading page is shown.
	GateWait time.Duration `yaml:"gate_wait" env:"GATE_WAIT"`
}

// StorageConfig controls image uploads.
type StorageConfig struct {
	Bucket         string `yaml:"bucket" env:"BUCKET"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
}

// Config is the root configuration.
type Config struct {
	Addr          string        `yaml:"addr" env:"ADDR"`
	Database      string        `yaml:"database" env:"DATABASE"`
	SessionKey    string        `yaml:"session_key" env:"SESSION_KEY"`
	UploadsDir    string        `yaml:"uploads_dir" env:"UPLOADS_DIR"`
	PublicBaseURL string        `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	Auth          AuthConfig    `yaml:"auth" envPrefix:"AUTH_"`
	Storage       StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
}

// Default returns a Config populated with the defaults.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		Database:      "./sephira.db",
		UploadsDir:    "./uploads",
		PublicBaseURL: "http://localhost:8080",
		Auth: AuthConfig{
			RequireConfirmation: true,
			SessionTTL:          7 * 24 * time.Hour,
			MinPasswordLength:   6,
			BrowserIdleTTL:      30 * time.Minute,
			MaxBrowsers:         10000,
			GateWait:            2 * time.Second,
		},
		Storage: StorageConfig{
			Bucket:         "blog-images",
			MaxUploadBytes: 5 << 20,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// SEPHIRA_* environment variables. A missing file is not an error. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SEPHIRA_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must be set")
	case c.Database == "":
		return errors.New("database must be set")
	case len(c.SessionKey) < 32:
		return errors.New("session_key must be at least 32 characters long")
	case c.UploadsDir == "":
		return errors.New("uploads_dir must be set")
	case c.Auth.MinPasswordLength < 1:
		return errors.New("auth.min_password_length must be positive")
	case c.Auth.MaxBrowsers < 0:
		return errors.New("auth.max_browsers must not be negative")
	case c.Storage.MaxUploadBytes <= 0:
		return errors.New("storage.max_upload_bytes must be positive")
	case c.Storage.Bucket == "":
		return errors.New("storage.bucket must be set")
	}
	return nil
}
