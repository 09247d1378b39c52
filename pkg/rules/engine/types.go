package engine

import (
	"time"

	"warden-hq/warden/pkg/approval"
	"warden-hq/warden/pkg/ratelimit"
	"warden-hq/warden/pkg/rules"
)

// Status is the overall outcome of evaluating one agent action.
type Status string

const (
	// StatusApproved means the action may proceed.
	StatusApproved Status = "approved"

	// StatusDenied means the action must be blocked.
	StatusDenied Status = "denied"

	// StatusRequiresReview means the action proceeds but was escalated
	// for review.
	StatusRequiresReview Status = "requires_review"

	// StatusPendingApproval means the action is held on a human approval
	// request.
	StatusPendingApproval Status = "pending_approval"

	// StatusRateLimited means the action tripped a rate limit for its
	// scope.
	StatusRateLimited Status = "rate_limited"
)

// Decision is the engine's single output for one evaluated action.
//
// Allowed is false if and only if Status is denied: pending_approval,
// requires_review, and rate_limited are allowed-but-held outcomes the host
// enforces, not denials.
type Decision struct {
	// Status is the overall outcome.
	Status Status `json:"status"`

	// Allowed is false exactly when Status is denied.
	Allowed bool `json:"allowed"`

	// RiskScore is the sum of riskWeight over matched rules.
	RiskScore int `json:"risk_score"`

	// MatchedRules lists the rules that matched, priority descending,
	// ties by rule id ascending.
	MatchedRules []*MatchedRule `json:"matched_rules,omitempty"`

	// Violations holds one record per matched rule whose actions include
	// deny or require_approval.
	Violations []rules.Violation `json:"violations,omitempty"`

	// Warnings collects messages from matched rules' warn actions.
	Warnings []string `json:"warnings,omitempty"`

	// CorrelationID links every audit event emitted while resolving this
	// action.
	CorrelationID string `json:"correlation_id"`

	// Approval is the request created when a matched rule required human
	// sign-off. Nil otherwise.
	Approval *approval.ApprovalRequest `json:"approval,omitempty"`

	// RateLimits holds the result of each rate-limit check performed,
	// keyed by the rule that demanded it.
	RateLimits map[string]ratelimit.Result `json:"rate_limits,omitempty"`

	// EvaluationTime is how long the evaluation took.
	EvaluationTime time.Duration `json:"evaluation_time"`
}

// MatchedRule records one rule that matched during evaluation, with the
// actions it contributed.
type MatchedRule struct {
	// RuleID is the matched rule's id.
	RuleID string `json:"rule_id"`

	// RuleName is the matched rule's name.
	RuleName string `json:"rule_name"`

	// Priority is the matched rule's priority.
	Priority int `json:"priority"`

	// RiskWeight is the rule's contribution to the aggregate risk score.
	RiskWeight int `json:"risk_weight"`

	// Actions are the governance actions the rule contributed.
	Actions []rules.RuleAction `json:"actions"`
}

// actionTypesPresent returns the distinct action types across the matched
// rules.
func actionTypesPresent(matches []*MatchedRule) map[rules.ActionType]bool {
	present := make(map[rules.ActionType]bool)
	for _, m := range matches {
		for _, a := range m.Actions {
			present[a.Type] = true
		}
	}
	return present
}
