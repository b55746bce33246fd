// Package config loads the application configuration from a yaml file
// merged with environment overrides. Flags are parsed by the binaries and
// win over both.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
}

// APIConfig locates the remote auth/chat collaborators.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StorageConfig holds the local persistent store location.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetentionConfig controls the optional cron-driven history trim.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Period  string `yaml:"period"`
}

// PeriodDuration parses the retention period, defaulting to 30 days when
// unset or unparseable input would otherwise disable the trim silently.
func (r RetentionConfig) PeriodDuration() (time.Duration, error) {
	if r.Period == "" {
		return 30 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(r.Period)
	if err != nil {
		return 0, fmt.Errorf("invalid retention period %q: %w", r.Period, err)
	}
	return d, nil
}

// Load reads the config file at path (optional; empty or missing files are
// fine), applies env overrides, then defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("IRONWALL_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("IRONWALL_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("IRONWALL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5001"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data/ironwall"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Retention.Cron == "" {
		cfg.Retention.Cron = "0 2 * * *"
	}
}
