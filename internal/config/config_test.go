package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"sephira/internal/config"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestDefault(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg.Addr, qt.Equals, ":8080")
	c.Assert(cfg.Auth.MinPasswordLength, qt.Equals, 6)
	c.Assert(cfg.Auth.RequireConfirmation, qt.IsTrue)
	c.Assert(cfg.Auth.MaxBrowsers, qt.Equals, 10000)
	c.Assert(cfg.Storage.Bucket, qt.Equals, "blog-images")
	c.Assert(cfg.Storage.MaxUploadBytes, qt.Equals, int64(5*1024*1024))
	// No key is shipped.
	c.Assert(cfg.Validate(), qt.ErrorMatches, "session_key .*")
}

func TestLoad(t *testing.T) {
	c := qt.New(t)

	c.Run("missing file returns defaults", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/sephira.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Addr, qt.Equals, ":8080")
	})

	c.Run("file overrides present keys only", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "sephira.yaml")
		yaml := "addr: \":9000\"\nsession_key: " + testKey + "\nauth:\n  session_ttl: 24h\n  require_confirmation: false\nstorage:\n  max_upload_bytes: 1024\n"
		c.Assert(os.WriteFile(path, []byte(yaml), 0o600), qt.IsNil)

		cfg, err := config.Load(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Addr, qt.Equals, ":9000")
		c.Assert(cfg.Auth.SessionTTL, qt.Equals, 24*time.Hour)
		c.Assert(cfg.Auth.RequireConfirmation, qt.IsFalse)
		c.Assert(cfg.Auth.GateWait, qt.Equals, 2*time.Second)
		c.Assert(cfg.Storage.MaxUploadBytes, qt.Equals, int64(1024))
		c.Assert(cfg.Storage.Bucket, qt.Equals, "blog-images")
		c.Assert(cfg.Validate(), qt.IsNil)
	})

	c.Run("environment wins over the file", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "sephira.yaml")
		c.Assert(os.WriteFile(path, []byte("addr: \":9000\"\n"), 0o600), qt.IsNil)
		c.Setenv("SEPHIRA_ADDR", ":7000")
		c.Setenv("SEPHIRA_AUTH_GATE_WAIT", "500ms")
		c.Setenv("SEPHIRA_AUTH_MAX_BROWSERS", "50")
		c.Setenv("SEPHIRA_STORAGE_BUCKET", "images")

		cfg, err := config.Load(path)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Addr, qt.Equals, ":7000")
		c.Assert(cfg.Auth.GateWait, qt.Equals, 500*time.Millisecond)
		c.Assert(cfg.Auth.MaxBrowsers, qt.Equals, 50)
		c.Assert(cfg.Storage.Bucket, qt.Equals, "images")
	})

	c.Run("malformed file", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "sephira.yaml")
		c.Assert(os.WriteFile(path, []byte("addr: [\n"), 0o600), qt.IsNil)
		_, err := config.Load(path)
		c.Assert(err, qt.ErrorMatches, "parse .*")
	})
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name string
		edit func(*config.Config)
		want string
	}{
		{"short key", func(cfg *config.Config) { cfg.SessionKey = "short" }, "session_key.*"},
		{"empty addr", func(cfg *config.Config) { cfg.Addr = "" }, "addr.*"},
		{"no bucket", func(cfg *config.Config) { cfg.Storage.Bucket = "" }, "storage.bucket.*"},
		{"negative browser cap", func(cfg *config.Config) { cfg.Auth.MaxBrowsers = -1 }, "auth.max_browsers.*"},
		{"zero upload limit", func(cfg *config.Config) { cfg.Storage.MaxUploadBytes = 0 }, "storage.max_upload_bytes.*"},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			cfg := config.Default()
			cfg.SessionKey = testKey
			test.edit(cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, test.want)
		})
	}
}
