package config

import "time"

// Config is the root configuration for Warden.
type Config struct {
	// Rules configures the rule catalog source.
	Rules RulesConfig `yaml:"rules"`

	// Approval configures the approval manager.
	Approval ApprovalConfig `yaml:"approval"`

	// RateLimit configures rate limiting defaults.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Audit configures audit trail persistence.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig configures where the rule catalog is loaded from.
type RulesConfig struct {
	// Path is the path to the YAML rule catalog.
	// Default: "./rules.yaml"
	Path string `yaml:"path"`

	// Watch enables hot-reload when the catalog file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces rapid file change events during reload.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// MaxRules is the maximum number of rules accepted in one catalog.
	// Default: 1000
	MaxRules int `yaml:"max_rules"`
}

// ApprovalConfig configures the approval manager.
type ApprovalConfig struct {
	// DefaultExpiration is how long a pending request stays actionable when
	// the caller does not set an explicit expiry.
	// Default: 24h
	DefaultExpiration time.Duration `yaml:"default_expiration"`

	// ResolvedHistoryLimit bounds the resolved request history. Oldest
	// resolved requests are evicted past the cap. 0 uses the default.
	// Default: 1000
	ResolvedHistoryLimit int `yaml:"resolved_history_limit"`

	// SweepSchedule is a cron expression for expiring overdue pending
	// requests. Empty disables the background sweeper.
	// Default: "*/5 * * * *" (every 5 minutes)
	SweepSchedule string `yaml:"sweep_schedule"`
}

// RateLimitConfig configures fixed-window rate limiting defaults applied to
// rules that carry a rate_limit action.
type RateLimitConfig struct {
	// DefaultLimit is the number of calls allowed per window.
	// Default: 10
	DefaultLimit int `yaml:"default_limit"`

	// DefaultWindow is the fixed window duration.
	// Default: 1m
	DefaultWindow time.Duration `yaml:"default_window"`

	// LimitType labels the counter scope, letting distinct limit kinds for
	// the same rule and agent count independently.
	// Default: "actions"
	LimitType string `yaml:"limit_type"`
}

// AuditConfig configures audit trail persistence.
type AuditConfig struct {
	// Backend selects the audit store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// MaxEvents bounds the in-memory store. Ignored by the sqlite backend.
	// Default: 10000
	MaxEvents int `yaml:"max_events"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder configures the async write path.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures pruning of old events.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig configures the asynchronous audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing one event to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig configures audit event retention.
type RetentionConfig struct {
	// Days is the number of days to retain audit events. 0 keeps events
	// forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact enables scrubbing of sensitive values from log fields and
	// audit event details.
	// Default: true
	Redact bool `yaml:"redact"`

	// RedactPatterns adds custom scrub patterns on top of the built-ins.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom redaction pattern.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is a regular expression matched against string values.
	Pattern string `yaml:"pattern"`

	// Replacement is substituted for every match.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the metrics server binds to.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path serving metrics.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
