package engine

import (
	"context"
	"testing"
	"time"

	"warden-hq/warden/pkg/approval"
	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/ratelimit"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/telemetry/logging"
)

// captureSink collects audit events synchronously for assertions.
type captureSink struct {
	events []*audit.Event
}

func (s *captureSink) Log(e *audit.Event) { s.events = append(s.events, e) }

func (s *captureSink) byType(t audit.EventType) []*audit.Event {
	var out []*audit.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func mustSet(t *testing.T, list ...*rules.BusinessRule) *rules.Set {
	t.Helper()

	for _, r := range list {
		r.Enabled = true
	}
	set, err := rules.NewSet(list)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func newTestEngine(t *testing.T, set *rules.Set, deps Deps) *Engine {
	t.Helper()

	e, err := New(nil, set, deps, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func evaluate(t *testing.T, e *Engine, action *rules.AgentAction, bag map[string]interface{}) *Decision {
	t.Helper()

	d, err := e.Evaluate(context.Background(), action, bag)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return d
}

func actionWith(fields map[string]interface{}) *rules.AgentAction {
	return &rules.AgentAction{Name: "deploy_service", Category: "deployment", Fields: fields}
}

func TestEvaluateNoMatchesApproves(t *testing.T) {
	set := mustSet(t, &rules.BusinessRule{
		ID:   "prod-only",
		Name: "Production guard",
		Conditions: []rules.Condition{
			{Field: "environment", Operator: rules.OperatorEquals, Value: "production"},
		},
		Actions: []rules.RuleAction{{Type: rules.ActionDeny}},
	})
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(map[string]interface{}{"environment": "staging"}), nil)

	if d.Status != StatusApproved {
		t.Errorf("Status = %q, want approved", d.Status)
	}
	if !d.Allowed {
		t.Error("no-match decision must be allowed")
	}
	if d.RiskScore != 0 || len(d.MatchedRules) != 0 {
		t.Errorf("unexpected aggregation: risk=%d matches=%d", d.RiskScore, len(d.MatchedRules))
	}
}

func TestPrecedenceDenyBeatsEverything(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "low-deny", Name: "Deny", Priority: 1,
			Actions: []rules.RuleAction{{Type: rules.ActionDeny, Message: "blocked"}},
		},
		&rules.BusinessRule{
			ID: "high-approval", Name: "Approval", Priority: 100,
			Actions: []rules.RuleAction{{Type: rules.ActionRequireApproval}},
		},
		&rules.BusinessRule{
			ID: "high-warn", Name: "Warn", Priority: 100,
			Actions: []rules.RuleAction{{Type: rules.ActionWarn, Message: "careful"}},
		},
	)
	e := newTestEngine(t, set, Deps{Approvals: approval.NewManager(nil)})

	d := evaluate(t, e, actionWith(nil), nil)

	// Precedence is independent of priority: the low-priority deny wins.
	if d.Status != StatusDenied {
		t.Errorf("Status = %q, want denied", d.Status)
	}
	if d.Allowed {
		t.Error("denied decision must not be allowed")
	}
	if len(d.Warnings) != 1 || d.Warnings[0] != "careful" {
		t.Errorf("Warnings = %v, co-occurring warn should still populate", d.Warnings)
	}
	// Co-occurring require_approval still fires its side effect.
	if d.Approval == nil {
		t.Error("co-occurring require_approval should still create a request")
	}
}

func TestPrecedenceApprovalOverEscalate(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "esc", Name: "Escalate",
			Actions: []rules.RuleAction{{Type: rules.ActionEscalate}},
		},
		&rules.BusinessRule{
			ID: "appr", Name: "Approval",
			Actions: []rules.RuleAction{{Type: rules.ActionRequireApproval}},
		},
	)
	e := newTestEngine(t, set, Deps{Approvals: approval.NewManager(nil)})

	d := evaluate(t, e, actionWith(nil), nil)
	if d.Status != StatusPendingApproval {
		t.Errorf("Status = %q, want pending_approval", d.Status)
	}
	if !d.Allowed {
		t.Error("pending_approval is held, not denied")
	}
}

func TestPrecedenceEscalate(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "esc", Name: "Escalate",
			Actions: []rules.RuleAction{{Type: rules.ActionEscalate}},
		},
		&rules.BusinessRule{
			ID: "warn", Name: "Warn",
			Actions: []rules.RuleAction{{Type: rules.ActionWarn, Message: "w"}},
		},
	)
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(nil), nil)
	if d.Status != StatusRequiresReview {
		t.Errorf("Status = %q, want requires_review", d.Status)
	}
	if !d.Allowed {
		t.Error("requires_review is allowed-but-flagged")
	}
}

func TestWarnOnlyApproves(t *testing.T) {
	set := mustSet(t, &rules.BusinessRule{
		ID: "warn", Name: "Warn",
		Actions: []rules.RuleAction{{Type: rules.ActionWarn, Message: "heads up"}},
	})
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(nil), nil)
	if d.Status != StatusApproved {
		t.Errorf("Status = %q, want approved", d.Status)
	}
	if len(d.Warnings) != 1 || d.Warnings[0] != "heads up" {
		t.Errorf("Warnings = %v", d.Warnings)
	}
}

func TestMatchedRuleOrdering(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{ID: "b-rule", Name: "B", Priority: 10},
		&rules.BusinessRule{ID: "a-rule", Name: "A", Priority: 10},
		&rules.BusinessRule{ID: "z-rule", Name: "Z", Priority: 50},
	)
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(nil), nil)

	wantOrder := []string{"z-rule", "a-rule", "b-rule"}
	if len(d.MatchedRules) != len(wantOrder) {
		t.Fatalf("matched %d rules, want %d", len(d.MatchedRules), len(wantOrder))
	}
	for i, want := range wantOrder {
		if d.MatchedRules[i].RuleID != want {
			t.Errorf("MatchedRules[%d] = %q, want %q", i, d.MatchedRules[i].RuleID, want)
		}
	}
}

func TestRiskAggregationAndViolations(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "deny-rule", Name: "Deny rule", RiskWeight: 60,
			Actions: []rules.RuleAction{{Type: rules.ActionDeny, Message: "no prod deploys"}},
		},
		&rules.BusinessRule{
			ID: "appr-rule", Name: "Approval rule", RiskWeight: 30,
			Actions: []rules.RuleAction{{Type: rules.ActionRequireApproval}},
		},
		&rules.BusinessRule{
			ID: "log-rule", Name: "Log rule", RiskWeight: 5,
			Actions: []rules.RuleAction{{Type: rules.ActionLog}},
		},
	)
	e := newTestEngine(t, set, Deps{Approvals: approval.NewManager(nil)})

	d := evaluate(t, e, actionWith(nil), nil)

	if d.RiskScore != 95 {
		t.Errorf("RiskScore = %d, want 95", d.RiskScore)
	}
	if len(d.Violations) != 2 {
		t.Fatalf("got %d violations, want one per deny/require_approval rule", len(d.Violations))
	}

	byID := make(map[string]rules.Violation)
	for _, v := range d.Violations {
		byID[v.RuleID] = v
	}
	if v := byID["deny-rule"]; v.Severity != "high" || v.Message != "no prod deploys" {
		t.Errorf("deny-rule violation = %+v", v)
	}
	if v := byID["appr-rule"]; v.Severity != "medium" {
		t.Errorf("appr-rule severity = %q, want medium", v.Severity)
	}
}

func TestUnknownOperatorExcludesRule(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "broken", Name: "Broken", RiskWeight: 90,
			Conditions: []rules.Condition{
				{Field: "environment", Operator: "matches_glob", Value: "prod*"},
			},
			Actions: []rules.RuleAction{{Type: rules.ActionDeny}},
		},
		&rules.BusinessRule{
			ID: "sound", Name: "Sound", RiskWeight: 5,
			Actions: []rules.RuleAction{{Type: rules.ActionLog}},
		},
	)
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(map[string]interface{}{"environment": "production"}), nil)

	if d.Status != StatusApproved {
		t.Errorf("Status = %q; rule with unknown operator must not match", d.Status)
	}
	if len(d.MatchedRules) != 1 || d.MatchedRules[0].RuleID != "sound" {
		t.Errorf("MatchedRules = %v, want only the sound rule", d.MatchedRules)
	}
	if d.RiskScore != 5 {
		t.Errorf("RiskScore = %d, excluded rule must not contribute", d.RiskScore)
	}
}

func TestDisabledRulesSkipped(t *testing.T) {
	disabled := &rules.BusinessRule{
		ID: "off", Name: "Off",
		Actions: []rules.RuleAction{{Type: rules.ActionDeny}},
	}
	enabled := &rules.BusinessRule{
		ID: "on", Name: "On",
		Actions: []rules.RuleAction{{Type: rules.ActionLog}},
	}
	enabled.Enabled = true

	set, err := rules.NewSet([]*rules.BusinessRule{disabled, enabled})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	e := newTestEngine(t, set, Deps{})

	d := evaluate(t, e, actionWith(nil), nil)
	if d.Status != StatusApproved || len(d.MatchedRules) != 1 {
		t.Errorf("disabled rule participated: status=%q matches=%d", d.Status, len(d.MatchedRules))
	}
}

func TestRequireApprovalSideEffect(t *testing.T) {
	mgr := approval.NewManager(nil)
	set := mustSet(t, &rules.BusinessRule{
		ID: "appr", Name: "Needs sign-off", RiskWeight: 80,
		Actions: []rules.RuleAction{
			{Type: rules.ActionRequireApproval, Message: "production deploys need sign-off"},
		},
	})
	e := newTestEngine(t, set, Deps{Approvals: mgr})

	bag := map[string]interface{}{"agent_id": "agent-a"}
	d := evaluate(t, e, actionWith(nil), bag)

	if d.Status != StatusPendingApproval {
		t.Fatalf("Status = %q, want pending_approval", d.Status)
	}
	if d.Approval == nil {
		t.Fatal("Approval request missing from decision")
	}
	if d.Approval.Reason != "production deploys need sign-off" {
		t.Errorf("Reason = %q", d.Approval.Reason)
	}
	if d.Approval.RiskScore != 80 {
		t.Errorf("RiskScore = %d, want 80", d.Approval.RiskScore)
	}
	if d.Approval.Priority != approval.PriorityUrgent {
		t.Errorf("Priority = %q, want urgent for critical risk", d.Approval.Priority)
	}
	if len(d.Approval.Violations) != 1 {
		t.Errorf("Violations = %v, want carried over from decision", d.Approval.Violations)
	}

	pending := mgr.GetPending(approval.Filter{AgentID: "agent-a"})
	if len(pending) != 1 || pending[0].ID != d.Approval.ID {
		t.Error("request not retrievable from the manager by agent filter")
	}
}

func TestRateLimitWithinLimitFallsThrough(t *testing.T) {
	set := mustSet(t, &rules.BusinessRule{
		ID: "rl", Name: "Rate limited",
		Actions: []rules.RuleAction{{Type: rules.ActionRateLimit}},
	})
	e := newTestEngine(t, set, Deps{Limiter: ratelimit.NewLimiter()})

	d := evaluate(t, e, actionWith(nil), map[string]interface{}{"agent_id": "agent-a"})

	if d.Status != StatusApproved {
		t.Errorf("Status = %q, want approved while within limit", d.Status)
	}
	res, ok := d.RateLimits["rl"]
	if !ok {
		t.Fatal("decision missing rate-limit result for rule rl")
	}
	if !res.Allowed {
		t.Error("first check should be within limit")
	}
}

func TestRateLimitExceeded(t *testing.T) {
	config := DefaultConfig()
	config.DefaultRateLimit = 2
	config.DefaultRateWindow = time.Hour

	set := mustSet(t, &rules.BusinessRule{
		ID: "rl", Name: "Rate limited",
		Actions: []rules.RuleAction{{Type: rules.ActionRateLimit}},
	})

	e, err := New(config, set, Deps{Limiter: ratelimit.NewLimiter()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bag := map[string]interface{}{"agent_id": "agent-a"}
	for i := 0; i < 2; i++ {
		if d := evaluate(t, e, actionWith(nil), bag); d.Status != StatusApproved {
			t.Fatalf("call %d: Status = %q, want approved", i+1, d.Status)
		}
	}

	d := evaluate(t, e, actionWith(nil), bag)
	if d.Status != StatusRateLimited {
		t.Errorf("Status = %q, want rate_limited after exhaustion", d.Status)
	}
	if !d.Allowed {
		t.Error("rate_limited is held, not denied: Allowed must stay true")
	}

	// A different agent gets its own scope.
	other := evaluate(t, e, actionWith(nil), map[string]interface{}{"agent_id": "agent-b"})
	if other.Status != StatusApproved {
		t.Errorf("other agent Status = %q, want approved", other.Status)
	}
}

func TestAuditTrailCorrelation(t *testing.T) {
	sink := &captureSink{}
	mgr := approval.NewManager(nil)
	set := mustSet(t,
		&rules.BusinessRule{
			ID: "appr", Name: "Approval", RiskWeight: 80,
			Actions: []rules.RuleAction{{Type: rules.ActionRequireApproval}},
		},
		&rules.BusinessRule{
			ID: "log", Name: "Log",
			Actions: []rules.RuleAction{{Type: rules.ActionLog}},
		},
	)
	e := newTestEngine(t, set, Deps{Approvals: mgr, Audit: sink})

	d := evaluate(t, e, actionWith(nil), map[string]interface{}{"agent_id": "agent-a"})

	if len(sink.events) == 0 {
		t.Fatal("no audit events emitted")
	}
	for _, ev := range sink.events {
		if ev.CorrelationID != d.CorrelationID {
			t.Errorf("event %s correlation = %q, want %q", ev.Type, ev.CorrelationID, d.CorrelationID)
		}
	}

	evals := sink.byType(audit.EventActionEvaluated)
	if len(evals) != 1 {
		t.Fatalf("got %d action_evaluated events, want 1", len(evals))
	}
	if evals[0].Outcome != audit.OutcomePending {
		t.Errorf("evaluation outcome = %q, want pending", evals[0].Outcome)
	}

	triggered := sink.byType(audit.EventRuleTriggered)
	if len(triggered) != 2 {
		t.Errorf("got %d rule_triggered events, want 2", len(triggered))
	}
	for _, ev := range triggered {
		if ev.ParentEventID != evals[0].ID {
			t.Error("rule_triggered should parent to the evaluation event")
		}
	}

	if got := sink.byType(audit.EventApprovalRequested); len(got) != 1 {
		t.Errorf("got %d approval_requested events, want 1", len(got))
	}
	// Risk 80 is critical; a security alert accompanies the trail.
	if got := sink.byType(audit.EventSecurityAlert); len(got) != 1 {
		t.Errorf("got %d security_alert events, want 1", len(got))
	}
}

func TestAuditDenialEvents(t *testing.T) {
	sink := &captureSink{}
	set := mustSet(t, &rules.BusinessRule{
		ID: "deny", Name: "Deny", RiskWeight: 10,
		Actions: []rules.RuleAction{{Type: rules.ActionDeny}},
	})
	e := newTestEngine(t, set, Deps{Audit: sink})

	evaluate(t, e, actionWith(nil), nil)

	if got := sink.byType(audit.EventActionDenied); len(got) != 1 {
		t.Errorf("got %d action_denied events, want 1", len(got))
	}
	if got := sink.byType(audit.EventComplianceViolation); len(got) != 1 {
		t.Errorf("got %d compliance_violation events, want 1", len(got))
	}
}

func TestApprovalResolutionJoinsAuditTrail(t *testing.T) {
	sink := &captureSink{}
	mgr := approval.NewManager(&approval.Config{Audit: sink})
	set := mustSet(t, &rules.BusinessRule{
		ID: "appr", Name: "Approval", RiskWeight: 40,
		Actions: []rules.RuleAction{{Type: rules.ActionRequireApproval}},
	})
	e := newTestEngine(t, set, Deps{Approvals: mgr, Audit: sink})

	d := evaluate(t, e, actionWith(nil), map[string]interface{}{"agent_id": "agent-a"})
	if d.Approval == nil {
		t.Fatal("Approval request missing from decision")
	}

	before := len(sink.events)
	if _, ok := mgr.Approve(d.Approval.ID, "alice", "verified"); !ok {
		t.Fatal("Approve returned absent for the decision's request")
	}
	if len(sink.events) == before {
		t.Fatal("no audit events recorded for the approval resolution")
	}

	resolved := sink.byType(audit.EventApprovalResolved)
	if len(resolved) != 1 {
		t.Fatalf("got %d approval_resolved events, want 1", len(resolved))
	}
	if resolved[0].CorrelationID != d.CorrelationID {
		t.Errorf("resolution correlation = %q, want the decision's %q",
			resolved[0].CorrelationID, d.CorrelationID)
	}
	if resolved[0].Details["request_id"] != d.Approval.ID {
		t.Errorf("Details[request_id] = %v, want %s",
			resolved[0].Details["request_id"], d.Approval.ID)
	}

	approved := sink.byType(audit.EventActionApproved)
	if len(approved) != 1 {
		t.Fatalf("got %d action_approved events, want 1", len(approved))
	}
	if approved[0].CorrelationID != d.CorrelationID {
		t.Error("action_approved should share the decision's correlation id")
	}
}

func TestReload(t *testing.T) {
	set := mustSet(t, &rules.BusinessRule{ID: "a", Name: "A"})
	e := newTestEngine(t, set, Deps{})

	replacement := mustSet(t, &rules.BusinessRule{
		ID: "b", Name: "B",
		Actions: []rules.RuleAction{{Type: rules.ActionDeny}},
	})
	if err := e.Reload(replacement); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	d := evaluate(t, e, actionWith(nil), nil)
	if d.Status != StatusDenied {
		t.Errorf("Status = %q after reload, want denied from replacement set", d.Status)
	}

	if err := e.Reload(nil); err == nil {
		t.Error("Reload(nil) should fail")
	}
}

func TestEvaluateNilAction(t *testing.T) {
	set := mustSet(t, &rules.BusinessRule{ID: "a", Name: "A"})
	e := newTestEngine(t, set, Deps{})

	if _, err := e.Evaluate(context.Background(), nil, nil); err == nil {
		t.Error("Evaluate(nil action) should fail")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	set := mustSet(t,
		&rules.BusinessRule{ID: "c", Name: "C", Priority: 5, RiskWeight: 1},
		&rules.BusinessRule{ID: "a", Name: "A", Priority: 5, RiskWeight: 2},
		&rules.BusinessRule{ID: "b", Name: "B", Priority: 9, RiskWeight: 3},
	)
	e := newTestEngine(t, set, Deps{})

	first := evaluate(t, e, actionWith(nil), nil)
	for i := 0; i < 10; i++ {
		d := evaluate(t, e, actionWith(nil), nil)
		if d.RiskScore != first.RiskScore || len(d.MatchedRules) != len(first.MatchedRules) {
			t.Fatal("repeated evaluation diverged")
		}
		for j := range d.MatchedRules {
			if d.MatchedRules[j].RuleID != first.MatchedRules[j].RuleID {
				t.Fatal("match order diverged between evaluations")
			}
		}
	}
}

func TestEvaluateReusesContextCorrelationID(t *testing.T) {
	sink := &captureSink{}
	set := mustSet(t, &rules.BusinessRule{ID: "a", Name: "A"})
	e := newTestEngine(t, set, Deps{Audit: sink})

	ctx := logging.WithCorrelationID(context.Background(), "upstream-corr-1")
	d, err := e.Evaluate(ctx, actionWith(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if d.CorrelationID != "upstream-corr-1" {
		t.Errorf("CorrelationID = %q, want upstream-corr-1", d.CorrelationID)
	}
	for _, ev := range sink.events {
		if ev.CorrelationID != "upstream-corr-1" {
			t.Errorf("event %s correlation = %q, want upstream-corr-1", ev.Type, ev.CorrelationID)
		}
	}
}
