package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigurationError marks malformed or missing policy input that cannot be
// degraded to a documented default.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Config is the deployment configuration.
type Config struct {
	Safety struct {
		DevicePrefix        string   `yaml:"device_prefix"`
		DenylistPaths       []string `yaml:"denylist_paths"`
		MountsPath          string   `yaml:"mounts_path"`
		RequireConfirmation bool     `yaml:"require_confirmation"`
	} `yaml:"safety"`

	Wipe struct {
		ChunkSize         int64   `yaml:"chunk_size"`
		SecureEraseWindow int64   `yaml:"secure_erase_window"`
		MaxSpeedMBps      float64 `yaml:"max_speed_mbps"`
	} `yaml:"wipe"`

	Signing struct {
		KeysDir string `yaml:"keys_dir"`
	} `yaml:"signing"`

	Reporting struct {
		Enabled   bool   `yaml:"enabled"`
		LocalPath string `yaml:"local_path"`
	} `yaml:"reporting"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}

	cfg.Safety.DevicePrefix = "/dev/"
	cfg.Safety.DenylistPaths = []string{
		"/dev/sda",
		"/dev/nvme0n1",
		"/dev/mmcblk0",
	}
	cfg.Safety.MountsPath = "/proc/self/mounts"
	cfg.Safety.RequireConfirmation = true

	cfg.Wipe.ChunkSize = 1 * 1024 * 1024
	cfg.Wipe.SecureEraseWindow = 16 * 1024 * 1024
	cfg.Wipe.MaxSpeedMBps = 0 // unlimited

	cfg.Signing.KeysDir = "./keys"

	cfg.Reporting.Enabled = true
	cfg.Reporting.LocalPath = "./out"

	cfg.Logging.Level = "INFO"
	cfg.Logging.File = ""

	return cfg
}

// Load reads the configuration from path. A missing file or empty path falls
// back to defaults; a malformed file is a hard error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for logically invalid combinations.
func Validate(cfg *Config) error {
	if cfg.Safety.DevicePrefix == "" {
		return &ConfigurationError{Field: "safety.device_prefix", Reason: "must not be empty"}
	}
	for _, path := range cfg.Safety.DenylistPaths {
		cleaned := filepath.Clean(strings.TrimSpace(path))
		if cleaned == "" || cleaned == "." || cleaned == "/" {
			return &ConfigurationError{Field: "safety.denylist_paths", Reason: fmt.Sprintf("invalid entry %q", path)}
		}
	}

	if cfg.Wipe.ChunkSize <= 0 {
		return &ConfigurationError{Field: "wipe.chunk_size", Reason: "must be positive"}
	}
	if cfg.Wipe.ChunkSize > 100*1024*1024 {
		return &ConfigurationError{Field: "wipe.chunk_size", Reason: "too large (max 100MB)"}
	}
	if cfg.Wipe.SecureEraseWindow <= 0 {
		return &ConfigurationError{Field: "wipe.secure_erase_window", Reason: "must be positive"}
	}
	if cfg.Wipe.MaxSpeedMBps < 0 {
		return &ConfigurationError{Field: "wipe.max_speed_mbps", Reason: "cannot be negative"}
	}

	if cfg.Signing.KeysDir == "" {
		return &ConfigurationError{Field: "signing.keys_dir", Reason: "must not be empty"}
	}
	if cfg.Reporting.Enabled && cfg.Reporting.LocalPath == "" {
		return &ConfigurationError{Field: "reporting.local_path", Reason: "required when reporting is enabled"}
	}

	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return &ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("invalid level %q", cfg.Logging.Level)}
	}

	return nil
}

// Save writes the configuration to path, validating first.
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
