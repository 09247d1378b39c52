package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden-hq/warden/pkg/approval"
	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/ratelimit"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/telemetry/logging"
)

// Approvals is the engine's handle to an approval manager.
type Approvals interface {
	// Request creates a pending approval request.
	Request(req approval.Request) *approval.ApprovalRequest
}

// RateLimits is the engine's handle to a rate limiter.
type RateLimits interface {
	// Check records one call against the scope and reports the result.
	Check(scopeKey string, limit int, window time.Duration) ratelimit.Result
}

// Recorder receives evaluation telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordEvaluation(status Status, duration time.Duration)
	RecordRuleMatch(ruleID string)
	RecordApprovalRequested(priority string)
	RecordRateLimitHit(ruleID string)
}

// Deps are the engine's injected collaborators. Any nil field degrades
// gracefully: approvals and limiter side effects are skipped with a warning
// log, audit falls back to a no-op sink, metrics to silence.
type Deps struct {
	Approvals Approvals
	Limiter   RateLimits
	Audit     audit.Sink
	Metrics   Recorder
}

// RuleSource provides rule sets to the engine for reload.
type RuleSource interface {
	Load(ctx context.Context) (*rules.Set, error)
}

// Engine evaluates agent actions against the loaded rule set.
//
// The rule set swaps atomically on reload; an in-flight evaluation keeps
// the set it started with.
type Engine struct {
	set    *rules.Set
	setMu  sync.RWMutex
	config *Config
	deps   Deps
	logger *slog.Logger
}

// New creates a rules engine over the given set.
func New(config *Config, set *rules.Set, deps Deps, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if set == nil {
		return nil, ErrNoRulesLoaded
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopSink{}
	}

	return &Engine{
		set:    set,
		config: config,
		deps:   deps,
		logger: logger.With("component", "rules.engine"),
	}, nil
}

// Rules returns the currently loaded rule set.
func (e *Engine) Rules() *rules.Set {
	e.setMu.RLock()
	defer e.setMu.RUnlock()
	return e.set
}

// Reload atomically replaces the rule set.
func (e *Engine) Reload(set *rules.Set) error {
	if set == nil {
		return ErrNoRulesLoaded
	}
	if set.Len() > e.config.MaxRules {
		return fmt.Errorf("%w: too many rules: %d (max: %d)",
			ErrInvalidConfig, set.Len(), e.config.MaxRules)
	}

	e.setMu.Lock()
	e.set = set
	e.setMu.Unlock()

	e.logger.Info("rules reloaded", "rule_count", set.Len())

	e.deps.Audit.Log(&audit.Event{
		Type:    audit.EventConfigChanged,
		Action:  "rules_reload",
		Outcome: audit.OutcomeSuccess,
		Details: map[string]interface{}{"rule_count": set.Len()},
	})

	return nil
}

// ReloadFrom loads a fresh set from the source and swaps it in.
func (e *Engine) ReloadFrom(ctx context.Context, src RuleSource) error {
	set, err := src.Load(ctx)
	if err != nil {
		return &ReloadError{Source: "source", Cause: err}
	}
	return e.Reload(set)
}

// Evaluate evaluates one proposed agent action against the loaded rule set
// and returns the governance decision.
//
// The context bag supplements the action's fields for condition resolution;
// its agent_id key scopes rate-limit counters and approval filters.
// Evaluation never fails on rule content: malformed conditions fail open,
// rules with unknown operators are excluded from matching.
func (e *Engine) Evaluate(ctx context.Context, action *rules.AgentAction, bag map[string]interface{}) (*Decision, error) {
	if action == nil {
		return nil, fmt.Errorf("action cannot be nil")
	}

	start := time.Now()

	// A caller that already carries a correlation id (an upstream gateway,
	// a retried evaluation) keeps it; otherwise mint one.
	correlationID := logging.CorrelationIDFrom(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	agentID := resolveAgentID(action, bag)

	e.setMu.RLock()
	set := e.set
	e.setMu.RUnlock()

	matches := e.collectMatches(set, action, bag)

	decision := &Decision{
		Status:        StatusApproved,
		Allowed:       true,
		MatchedRules:  matches,
		CorrelationID: correlationID,
	}

	for _, m := range matches {
		decision.RiskScore += m.RiskWeight
	}

	e.aggregate(set, decision)

	// Side effects run for every matched action type, winner or not: a
	// notify alongside a deny still fires, and a matched rate_limit still
	// consumes its window slot.
	limitExceeded := e.applyRateLimits(decision, agentID)
	e.requestApproval(decision, action, bag, agentID)

	decision.Status = resolveStatus(actionTypesPresent(matches), limitExceeded)
	decision.Allowed = decision.Status != StatusDenied
	decision.EvaluationTime = time.Since(start)

	e.emitAuditTrail(decision, action, agentID)

	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordEvaluation(decision.Status, decision.EvaluationTime)
	}

	e.logger.Debug("action evaluated",
		"action", action.Name,
		"agent_id", agentID,
		"status", decision.Status,
		"risk_score", decision.RiskScore,
		"matched_rules", len(matches),
		"correlation_id", correlationID,
	)

	return decision, nil
}

// collectMatches runs the condition evaluator over the enabled rules.
// rules.Set.Enabled already orders priority descending, ties by id, so the
// match list inherits a deterministic order.
func (e *Engine) collectMatches(set *rules.Set, action *rules.AgentAction, bag map[string]interface{}) []*MatchedRule {
	var matches []*MatchedRule

	for _, rule := range set.Enabled() {
		ok, err := matchRule(rule, action, bag)
		if err != nil {
			// Unknown operator: exclude the whole rule from matching.
			e.logger.Warn("rule excluded from evaluation",
				"rule_id", rule.ID,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}

		matches = append(matches, &MatchedRule{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			Priority:   rule.Priority,
			RiskWeight: rule.RiskWeight,
			Actions:    rule.Actions,
		})

		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordRuleMatch(rule.ID)
		}
	}

	return matches
}

// aggregate derives violations and warnings from the matched rules.
func (e *Engine) aggregate(set *rules.Set, decision *Decision) {
	for _, m := range decision.MatchedRules {
		rule, ok := set.Get(m.RuleID)
		if !ok {
			continue
		}

		if rule.HasActionType(rules.ActionDeny) || rule.HasActionType(rules.ActionRequireApproval) {
			decision.Violations = append(decision.Violations, rules.Violation{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Severity: string(audit.RiskLevelForScore(rule.RiskWeight)),
				Message:  firstActionMessage(rule, rules.ActionDeny, rules.ActionRequireApproval),
			})
		}

		for _, a := range rule.ActionsByType(rules.ActionWarn) {
			msg := a.Message
			if msg == "" {
				msg = rule.Name
			}
			decision.Warnings = append(decision.Warnings, msg)
		}
	}
}

// applyRateLimits checks the limiter for every matched rule that carries a
// rate_limit action and reports whether any scope tripped its limit.
func (e *Engine) applyRateLimits(decision *Decision, agentID string) bool {
	exceeded := false

	for _, m := range decision.MatchedRules {
		if !hasAction(m, rules.ActionRateLimit) {
			continue
		}
		if e.deps.Limiter == nil {
			e.logger.Warn("rate_limit action matched but no limiter configured",
				"rule_id", m.RuleID,
			)
			continue
		}

		scope := ratelimit.ScopeKey(m.RuleID, agentID, e.config.LimitType)
		res := e.deps.Limiter.Check(scope, e.config.DefaultRateLimit, e.config.DefaultRateWindow)

		if decision.RateLimits == nil {
			decision.RateLimits = make(map[string]ratelimit.Result)
		}
		decision.RateLimits[m.RuleID] = res

		if !res.Allowed {
			exceeded = true
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordRateLimitHit(m.RuleID)
			}
		}
	}

	return exceeded
}

// requestApproval creates the approval hold demanded by matched
// require_approval actions. One request covers all of them: the violation
// list carries every triggering rule.
func (e *Engine) requestApproval(decision *Decision, action *rules.AgentAction, bag map[string]interface{}, agentID string) {
	var trigger *MatchedRule
	for _, m := range decision.MatchedRules {
		if hasAction(m, rules.ActionRequireApproval) {
			trigger = m
			break
		}
	}
	if trigger == nil {
		return
	}
	if e.deps.Approvals == nil {
		e.logger.Warn("require_approval action matched but no approval manager configured",
			"rule_id", trigger.RuleID,
		)
		return
	}

	reason := trigger.RuleName
	for _, a := range trigger.Actions {
		if a.Type == rules.ActionRequireApproval && a.Message != "" {
			reason = a.Message
			break
		}
	}

	reqCtx := map[string]interface{}{
		approval.ContextAgentID:       agentID,
		approval.ContextCorrelationID: decision.CorrelationID,
	}
	for k, v := range bag {
		if _, taken := reqCtx[k]; !taken {
			reqCtx[k] = v
		}
	}

	req := e.deps.Approvals.Request(approval.Request{
		Reason:     reason,
		ActionID:   action.Name,
		Priority:   priorityForRisk(decision.RiskScore),
		Context:    reqCtx,
		RiskScore:  decision.RiskScore,
		Violations: decision.Violations,
	})
	decision.Approval = req

	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordApprovalRequested(string(req.Priority))
	}
}

// priorityForRisk maps an aggregate risk score onto an approval priority.
func priorityForRisk(score int) approval.Priority {
	switch audit.RiskLevelForScore(score) {
	case audit.RiskCritical:
		return approval.PriorityUrgent
	case audit.RiskHigh:
		return approval.PriorityHigh
	case audit.RiskMedium:
		return approval.PriorityNormal
	default:
		return approval.PriorityLow
	}
}

// emitAuditTrail mirrors the evaluation to the audit sink. Every event
// shares the decision's correlation id; per-rule events parent to the
// evaluation event so a reader can reconstruct the trail from the
// correlation id alone.
func (e *Engine) emitAuditTrail(decision *Decision, action *rules.AgentAction, agentID string) {
	riskLevel := audit.RiskLevelForScore(decision.RiskScore)

	evalEvent := &audit.Event{
		ID:            uuid.New().String(),
		Type:          audit.EventActionEvaluated,
		Action:        action.Name,
		Outcome:       outcomeFor(decision.Status),
		AgentID:       agentID,
		RiskLevel:     riskLevel,
		CorrelationID: decision.CorrelationID,
		Details: map[string]interface{}{
			"status":        string(decision.Status),
			"allowed":       decision.Allowed,
			"risk_score":    decision.RiskScore,
			"matched_rules": matchedRuleIDs(decision.MatchedRules),
		},
	}
	e.deps.Audit.Log(evalEvent)

	for _, m := range decision.MatchedRules {
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventRuleTriggered,
			Action:        action.Name,
			Outcome:       audit.OutcomeSuccess,
			AgentID:       agentID,
			RiskLevel:     audit.RiskLevelForScore(m.RiskWeight),
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"rule_id":   m.RuleID,
				"rule_name": m.RuleName,
				"priority":  m.Priority,
			},
		})
	}

	if decision.Status == StatusDenied {
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventActionDenied,
			Action:        action.Name,
			Outcome:       audit.OutcomeFailure,
			AgentID:       agentID,
			RiskLevel:     riskLevel,
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"violations": len(decision.Violations),
			},
		})
	}

	if decision.Approval != nil {
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventApprovalRequested,
			Action:        action.Name,
			Outcome:       audit.OutcomePending,
			AgentID:       agentID,
			RiskLevel:     riskLevel,
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"request_id": decision.Approval.ID,
				"priority":   string(decision.Approval.Priority),
				"reason":     decision.Approval.Reason,
			},
		})
	}

	for ruleID, res := range decision.RateLimits {
		if res.Allowed {
			continue
		}
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventRateLimitHit,
			Action:        action.Name,
			Outcome:       audit.OutcomeFailure,
			AgentID:       agentID,
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"rule_id":  ruleID,
				"limit":    res.Limit,
				"reset_at": res.ResetAt,
			},
		})
	}

	if len(decision.Violations) > 0 {
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventComplianceViolation,
			Action:        action.Name,
			Outcome:       audit.OutcomeFailure,
			AgentID:       agentID,
			RiskLevel:     riskLevel,
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"violations": decision.Violations,
			},
		})
	}

	if riskLevel == audit.RiskCritical {
		e.deps.Audit.Log(&audit.Event{
			Type:          audit.EventSecurityAlert,
			Action:        action.Name,
			Outcome:       outcomeFor(decision.Status),
			AgentID:       agentID,
			RiskLevel:     riskLevel,
			CorrelationID: decision.CorrelationID,
			ParentEventID: evalEvent.ID,
			Details: map[string]interface{}{
				"risk_score": decision.RiskScore,
			},
		})
	}
}

// outcomeFor maps a decision status to an audit outcome.
func outcomeFor(status Status) audit.Outcome {
	switch status {
	case StatusDenied, StatusRateLimited:
		return audit.OutcomeFailure
	case StatusPendingApproval, StatusRequiresReview:
		return audit.OutcomePending
	default:
		return audit.OutcomeSuccess
	}
}

// resolveAgentID pulls the acting agent's id from the action fields or the
// context bag.
func resolveAgentID(action *rules.AgentAction, bag map[string]interface{}) string {
	if v, ok := resolveField("agent_id", action, bag); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

func hasAction(m *MatchedRule, t rules.ActionType) bool {
	for _, a := range m.Actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

func matchedRuleIDs(matches []*MatchedRule) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.RuleID)
	}
	return ids
}

func firstActionMessage(rule *rules.BusinessRule, types ...rules.ActionType) string {
	for _, t := range types {
		for _, a := range rule.ActionsByType(t) {
			if a.Message != "" {
				return a.Message
			}
		}
	}
	return rule.Name
}
