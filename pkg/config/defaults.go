package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesPath        = "./rules.yaml"
	DefaultRulesWatch       = false
	DefaultDebounceInterval = 500 * time.Millisecond
	DefaultMaxRules         = 1000

	// Approval defaults
	DefaultApprovalExpiration   = 24 * time.Hour
	DefaultResolvedHistoryLimit = 1000
	DefaultSweepSchedule        = "*/5 * * * *"

	// Rate limit defaults
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute
	DefaultLimitType  = "actions"

	// Audit defaults
	DefaultAuditBackend         = "memory"
	DefaultAuditMaxEvents       = 10000
	DefaultAuditSQLitePath      = "data/audit.db"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultRecorderAsyncBuffer  = 1000
	DefaultRecorderWriteTimeout = 5 * time.Second
	DefaultRetentionDays        = 90
	DefaultRetentionSchedule    = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedact        = true
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// DefaultConfig returns a fully populated configuration with default values.
// LoadConfig unmarshals YAML over this, so boolean fields that default to
// true keep their default unless the file sets them explicitly.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Rules.Watch = DefaultRulesWatch
	cfg.Audit.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.Redact = DefaultLoggingRedact
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued non-boolean fields with default values.
// Booleans are handled by DefaultConfig so that an explicit false in the
// file is not mistaken for "unset".
func ApplyDefaults(cfg *Config) {
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.Rules.MaxRules == 0 {
		cfg.Rules.MaxRules = DefaultMaxRules
	}

	if cfg.Approval.DefaultExpiration == 0 {
		cfg.Approval.DefaultExpiration = DefaultApprovalExpiration
	}
	if cfg.Approval.ResolvedHistoryLimit == 0 {
		cfg.Approval.ResolvedHistoryLimit = DefaultResolvedHistoryLimit
	}
	if cfg.Approval.SweepSchedule == "" {
		cfg.Approval.SweepSchedule = DefaultSweepSchedule
	}

	if cfg.RateLimit.DefaultLimit == 0 {
		cfg.RateLimit.DefaultLimit = DefaultRateLimit
	}
	if cfg.RateLimit.DefaultWindow == 0 {
		cfg.RateLimit.DefaultWindow = DefaultRateWindow
	}
	if cfg.RateLimit.LimitType == "" {
		cfg.RateLimit.LimitType = DefaultLimitType
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.MaxEvents == 0 {
		cfg.Audit.MaxEvents = DefaultAuditMaxEvents
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
