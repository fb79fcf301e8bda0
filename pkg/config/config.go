// Package config provides configuration file support for storedoctor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studydesk/storedoctor/pkg/errclass"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "STOREDOCTOR_CONFIG"

// Config represents the storedoctor configuration.
type Config struct {
	Store    StoreConfig     `yaml:"store"`
	Sweep    SweepConfig     `yaml:"sweep"`
	Services []ServiceConfig `yaml:"services,omitempty"`
	Logging  LoggingConfig   `yaml:"logging"`
	Audit    AuditConfig     `yaml:"audit"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Serve    ServeConfig     `yaml:"serve"`
	Lock     LockConfig      `yaml:"lock"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // file, sqlite, memory
	Path    string `yaml:"path"`
}

// SweepConfig tunes the sweep engine.
type SweepConfig struct {
	CapacityBytes int64         `yaml:"capacity_bytes"`
	WarnRatio     float64       `yaml:"warn_ratio"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	SkipHealth    bool          `yaml:"skip_health"`
	HistorySize   int           `yaml:"history_size"`
}

// ServiceConfig points a registry service at a concrete endpoint.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// AuditConfig configures the repair audit log.
type AuditConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// ServeConfig configures the periodic sweep server.
type ServeConfig struct {
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

// LockConfig configures the sweep lease.
type LockConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "file",
			Path:    defaultStorePath(),
		},
		Sweep: SweepConfig{
			CapacityBytes: 5 * 1024 * 1024,
			WarnRatio:     0.8,
			HealthTimeout: 8 * time.Second,
			HistorySize:   5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Serve: ServeConfig{
			Addr:     ":2112",
			Interval: 15 * time.Minute,
		},
		Lock: LockConfig{
			TTL: 2 * time.Minute,
		},
	}
}

// DefaultPath returns the config file location, honoring STOREDOCTOR_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storedoctor", "config.yaml")
	}
	return filepath.Join(home, ".config", "storedoctor", "config.yaml")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storedoctor", "store.json")
	}
	return filepath.Join(home, ".local", "share", "storedoctor", "store.json")
}

// Load loads configuration from path.
// Returns default config if file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil // No config file is OK, use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "sqlite":
		if c.Store.Path == "" {
			return errclass.ErrConfigInvalid.WithMessagef("store.path is required for backend %q", c.Store.Backend)
		}
	case "memory":
	default:
		return errclass.ErrConfigInvalid.WithMessagef("unknown store.backend %q", c.Store.Backend)
	}
	if c.Sweep.CapacityBytes <= 0 {
		return errclass.ErrConfigInvalid.WithMessage("sweep.capacity_bytes must be positive")
	}
	if c.Sweep.WarnRatio <= 0 || c.Sweep.WarnRatio > 1 {
		return errclass.ErrConfigInvalid.WithMessagef("sweep.warn_ratio must be in (0,1], got %v", c.Sweep.WarnRatio)
	}
	if c.Sweep.HealthTimeout <= 0 {
		return errclass.ErrConfigInvalid.WithMessage("sweep.health_timeout must be positive")
	}
	if c.Sweep.HistorySize < 1 {
		return errclass.ErrConfigInvalid.WithMessage("sweep.history_size must be at least 1")
	}
	seen := make(map[string]bool)
	for _, s := range c.Services {
		if s.Name == "" {
			return errclass.ErrConfigInvalid.WithMessage("services entry without name")
		}
		if seen[s.Name] {
			return errclass.ErrConfigInvalid.WithMessagef("service %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Service returns the configuration for the named service, if any.
func (c *Config) Service(name string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceConfig{}, false
}
