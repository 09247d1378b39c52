package logging

import (
	"context"
	"testing"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := CorrelationIDFrom(ctx); got != "" {
		t.Errorf("empty context should have no correlation id, got %q", got)
	}

	ctx = WithCorrelationID(ctx, "corr-123")
	if got := CorrelationIDFrom(ctx); got != "corr-123" {
		t.Errorf("CorrelationIDFrom = %q, want corr-123", got)
	}
}

func TestAgentAndActionRoundTrip(t *testing.T) {
	ctx := WithAgentID(context.Background(), "deploy-bot")
	ctx = WithActionName(ctx, "deploy_service")

	if got := AgentIDFrom(ctx); got != "deploy-bot" {
		t.Errorf("AgentIDFrom = %q", got)
	}
	if got := ActionNameFrom(ctx); got != "deploy_service" {
		t.Errorf("ActionNameFrom = %q", got)
	}
}

func TestContextAttrs(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-9")
	ctx = WithAgentID(ctx, "agent-7")

	attrs := ContextAttrs(ctx)
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attrs, got %d: %v", len(attrs), attrs)
	}
	if attrs[0] != "correlation_id" || attrs[1] != "corr-9" {
		t.Errorf("correlation attrs = %v", attrs[:2])
	}
	if attrs[2] != "agent_id" || attrs[3] != "agent-7" {
		t.Errorf("agent attrs = %v", attrs[2:])
	}
}

func TestContextAttrsEmpty(t *testing.T) {
	if attrs := ContextAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}
