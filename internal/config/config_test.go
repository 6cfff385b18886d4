package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device prefix", func(c *Config) { c.Safety.DevicePrefix = "" }},
		{"root denylist entry", func(c *Config) { c.Safety.DenylistPaths = []string{"/"} }},
		{"zero chunk size", func(c *Config) { c.Wipe.ChunkSize = 0 }},
		{"oversized chunk", func(c *Config) { c.Wipe.ChunkSize = 200 * 1024 * 1024 }},
		{"negative speed", func(c *Config) { c.Wipe.MaxSpeedMBps = -1 }},
		{"empty keys dir", func(c *Config) { c.Signing.KeysDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "TRACE" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %T", err)
			}
		})
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Safety.DevicePrefix != "/dev/" {
		t.Fatalf("unexpected prefix %q", cfg.Safety.DevicePrefix)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("safety: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "shoonya.yaml")
	cfg := Default()
	cfg.Wipe.ChunkSize = 4 * 1024 * 1024
	cfg.Safety.DenylistPaths = append(cfg.Safety.DenylistPaths, "/dev/vda")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Wipe.ChunkSize != 4*1024*1024 {
		t.Fatalf("chunk size %d", loaded.Wipe.ChunkSize)
	}
	if len(loaded.Safety.DenylistPaths) != 4 {
		t.Fatalf("denylist %v", loaded.Safety.DenylistPaths)
	}
}
