package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"warden-hq/warden/pkg/rules/engine"
)

func TestCollectorRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordEvaluation(engine.StatusApproved, 250*time.Microsecond)
	c.RecordEvaluation(engine.StatusDenied, 100*time.Microsecond)
	c.RecordRuleMatch("prod-guard")
	c.RecordApprovalRequested("urgent")
	c.RecordRateLimitHit("rl-rule")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	byName := make(map[string]bool)
	for _, mf := range families {
		byName[mf.GetName()] = true
	}

	want := []string{
		"warden_evaluations_total",
		"warden_evaluation_duration_seconds",
		"warden_rule_matches_total",
		"warden_approvals_requested_total",
		"warden_rate_limit_hits_total",
	}
	for _, name := range want {
		if !byName[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestCollectorSatisfiesEngineRecorder(t *testing.T) {
	var _ engine.Recorder = NewCollector(prometheus.NewRegistry())
}

func TestHandler(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	if c.Handler() == nil {
		t.Fatal("Handler returned nil")
	}
}
