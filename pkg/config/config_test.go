package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5001" {
		t.Fatalf("base url default %q", cfg.API.BaseURL)
	}
	if cfg.Storage.DBPath != "./data/ironwall" {
		t.Fatalf("db path default %q", cfg.Storage.DBPath)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("log level default %q", cfg.Logging.Level)
	}
	if cfg.Retention.Enabled {
		t.Fatalf("retention enabled by default")
	}
	if cfg.Retention.Cron != "0 2 * * *" {
		t.Fatalf("retention cron default %q", cfg.Retention.Cron)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
api:
  base_url: https://api.example.com
storage:
  db_path: /var/lib/ironwall
logging:
  level: debug
retention:
  enabled: true
  cron: "30 3 * * *"
  period: 168h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Fatalf("base url %q", cfg.API.BaseURL)
	}
	if cfg.Storage.DBPath != "/var/lib/ironwall" {
		t.Fatalf("db path %q", cfg.Storage.DBPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level %q", cfg.Logging.Level)
	}
	if !cfg.Retention.Enabled || cfg.Retention.Cron != "30 3 * * *" {
		t.Fatalf("retention %+v", cfg.Retention)
	}
	d, err := cfg.Retention.PeriodDuration()
	if err != nil || d != 168*time.Hour {
		t.Fatalf("period %v %v", d, err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IRONWALL_API_URL", "https://env.example.com")
	t.Setenv("IRONWALL_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Fatalf("env did not win: %q", cfg.API.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env log level: %q", cfg.Logging.Level)
	}
}

func TestMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file errored: %v", err)
	}
	if cfg.API.BaseURL == "" {
		t.Fatalf("defaults not applied")
	}
}

func TestMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\tnot yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestPeriodDuration(t *testing.T) {
	if d, err := (RetentionConfig{}).PeriodDuration(); err != nil || d != 30*24*time.Hour {
		t.Fatalf("default period %v %v", d, err)
	}
	if _, err := (RetentionConfig{Period: "soon"}).PeriodDuration(); err == nil {
		t.Fatalf("bad period accepted")
	}
}
