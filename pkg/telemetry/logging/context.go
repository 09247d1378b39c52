package logging

import (
	"context"
)

// Context keys for evaluation-scoped log fields.
type contextKey string

const (
	// CorrelationIDKey is the context key for evaluation correlation ids.
	CorrelationIDKey contextKey = "correlation_id"

	// AgentIDKey is the context key for agent identifiers.
	AgentIDKey contextKey = "agent_id"

	// ActionNameKey is the context key for the evaluated action name.
	ActionNameKey contextKey = "action"
)

// WithCorrelationID adds a correlation id to the context. The rules engine
// reuses a context-carried correlation id for the decision and its audit
// events instead of generating one.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// CorrelationIDFrom retrieves the correlation id from the context, or ""
// when none is set.
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAgentID adds an agent identifier to the context.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// AgentIDFrom retrieves the agent identifier from the context, or "" when
// none is set.
func AgentIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(AgentIDKey).(string); ok {
		return id
	}
	return ""
}

// WithActionName adds the evaluated action name to the context.
func WithActionName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ActionNameKey, name)
}

// ActionNameFrom retrieves the action name from the context, or "" when none
// is set.
func ActionNameFrom(ctx context.Context) string {
	if name, ok := ctx.Value(ActionNameKey).(string); ok {
		return name
	}
	return ""
}

// ContextAttrs extracts the evaluation-scoped fields present on the context
// as key-value pairs suitable for slog's With.
func ContextAttrs(ctx context.Context) []any {
	var attrs []any

	if id := CorrelationIDFrom(ctx); id != "" {
		attrs = append(attrs, string(CorrelationIDKey), id)
	}
	if id := AgentIDFrom(ctx); id != "" {
		attrs = append(attrs, string(AgentIDKey), id)
	}
	if name := ActionNameFrom(ctx); name != "" {
		attrs = append(attrs, string(ActionNameKey), name)
	}

	return attrs
}
