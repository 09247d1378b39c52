// Package telemetry groups the observability packages of the governance
// service.
//
// Subpackages:
//
//   - logging: structured slog loggers, credential redaction, and
//     correlation-id context propagation
//   - metrics: Prometheus metrics for evaluations, rule matches, approvals,
//     and rate limits
//   - health: liveness and readiness probes for the service endpoints
package telemetry
