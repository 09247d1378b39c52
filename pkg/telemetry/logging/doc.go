// Package logging configures structured logging for Warden.
//
// It builds log/slog loggers from configuration, carries evaluation
// identifiers (correlation id, agent id, action name) through
// context.Context, and scrubs sensitive values from log fields and audit
// event details via Redactor.
//
// Typical setup:
//
//	logger, err := logging.SetDefault(logging.Config{
//	    Level:  cfg.Telemetry.Logging.Level,
//	    Format: cfg.Telemetry.Logging.Format,
//	})
//
// Handlers that receive a correlation id should put it on the context with
// WithCorrelationID; the rules engine reuses a context-carried id instead of
// minting a new one, so audit events line up across process boundaries.
package logging
