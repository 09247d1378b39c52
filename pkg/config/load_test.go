package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "rules:\n  path: /etc/warden/rules.yaml\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Rules.Path != "/etc/warden/rules.yaml" {
		t.Errorf("rules.path = %q, want /etc/warden/rules.yaml", cfg.Rules.Path)
	}
	if cfg.Approval.DefaultExpiration != DefaultApprovalExpiration {
		t.Errorf("approval.default_expiration = %v, want %v",
			cfg.Approval.DefaultExpiration, DefaultApprovalExpiration)
	}
	if cfg.RateLimit.DefaultLimit != DefaultRateLimit {
		t.Errorf("rate_limit.default_limit = %d, want %d",
			cfg.RateLimit.DefaultLimit, DefaultRateLimit)
	}
	if cfg.Audit.Backend != DefaultAuditBackend {
		t.Errorf("audit.backend = %q, want %q", cfg.Audit.Backend, DefaultAuditBackend)
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("audit.sqlite.wal_mode should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("telemetry.metrics.enabled should default to true")
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("telemetry.logging.level = %q, want info", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
rules:
  path: ./catalog.yaml
  watch: true
  max_rules: 50
approval:
  default_expiration: 2h
  sweep_schedule: "*/10 * * * *"
rate_limit:
  default_limit: 3
  default_window: 30s
  limit_type: api_calls
audit:
  backend: sqlite
  sqlite:
    path: /var/lib/warden/audit.db
    wal_mode: false
  retention:
    days: 30
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !cfg.Rules.Watch {
		t.Error("rules.watch should be true")
	}
	if cfg.Rules.MaxRules != 50 {
		t.Errorf("rules.max_rules = %d, want 50", cfg.Rules.MaxRules)
	}
	if cfg.Approval.DefaultExpiration != 2*time.Hour {
		t.Errorf("approval.default_expiration = %v, want 2h", cfg.Approval.DefaultExpiration)
	}
	if cfg.RateLimit.DefaultLimit != 3 {
		t.Errorf("rate_limit.default_limit = %d, want 3", cfg.RateLimit.DefaultLimit)
	}
	if cfg.RateLimit.DefaultWindow != 30*time.Second {
		t.Errorf("rate_limit.default_window = %v, want 30s", cfg.RateLimit.DefaultWindow)
	}
	if cfg.Audit.Backend != "sqlite" {
		t.Errorf("audit.backend = %q, want sqlite", cfg.Audit.Backend)
	}
	if cfg.Audit.SQLite.WALMode {
		t.Error("audit.sqlite.wal_mode explicit false should survive defaults")
	}
	if cfg.Audit.Retention.Days != 30 {
		t.Errorf("audit.retention.days = %d, want 30", cfg.Audit.Retention.Days)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("telemetry.metrics.enabled explicit false should survive defaults")
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("telemetry.logging.format = %q, want text", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "rules: [not a mapping")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := writeConfigFile(t, "audit:\n  backend: postgres\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "audit.backend") {
		t.Errorf("error should name the offending field, got: %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "rules:\n  path: ./from-file.yaml\n")

	t.Setenv("WARDEN_RULES_PATH", "/env/rules.yaml")
	t.Setenv("WARDEN_RULES_WATCH", "true")
	t.Setenv("WARDEN_RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("WARDEN_RATE_LIMIT_DEFAULT_WINDOW", "90s")
	t.Setenv("WARDEN_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("WARDEN_TELEMETRY_METRICS_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Rules.Path != "/env/rules.yaml" {
		t.Errorf("rules.path = %q, want /env/rules.yaml", cfg.Rules.Path)
	}
	if !cfg.Rules.Watch {
		t.Error("rules.watch should be overridden to true")
	}
	if cfg.RateLimit.DefaultLimit != 42 {
		t.Errorf("rate_limit.default_limit = %d, want 42", cfg.RateLimit.DefaultLimit)
	}
	if cfg.RateLimit.DefaultWindow != 90*time.Second {
		t.Errorf("rate_limit.default_window = %v, want 90s", cfg.RateLimit.DefaultWindow)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("telemetry.logging.level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("telemetry.metrics.enabled should be overridden to false")
	}
}

func TestLoadConfigWithEnvOverridesInvalid(t *testing.T) {
	path := writeConfigFile(t, "rules:\n  path: ./rules.yaml\n")

	t.Setenv("WARDEN_AUDIT_BACKEND", "mongodb")

	_, err := LoadConfigWithEnvOverrides(path)
	if err == nil {
		t.Fatal("expected validation error after env overrides")
	}
	if !strings.Contains(err.Error(), "environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnvOverrideIgnoresUnparseable(t *testing.T) {
	path := writeConfigFile(t, "rate_limit:\n  default_limit: 7\n")

	t.Setenv("WARDEN_RATE_LIMIT_DEFAULT_LIMIT", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.RateLimit.DefaultLimit != 7 {
		t.Errorf("rate_limit.default_limit = %d, want file value 7", cfg.RateLimit.DefaultLimit)
	}
}
