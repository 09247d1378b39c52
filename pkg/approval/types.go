package approval

import (
	"time"

	"warden-hq/warden/pkg/rules"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	// StatusPending means the request awaits a human decision.
	StatusPending Status = "pending"

	// StatusApproved means a human approved the request.
	StatusApproved Status = "approved"

	// StatusDenied means a human denied the request.
	StatusDenied Status = "denied"

	// StatusCancelled means the caller withdrew the request.
	StatusCancelled Status = "cancelled"

	// StatusExpired means the request passed its deadline unresolved.
	StatusExpired Status = "expired"
)

// Terminal returns true for the four absorbing states.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusDenied, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Priority orders pending requests for human reviewers.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank returns the sort rank of a priority; higher sorts first.
// Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// ContextAgentID is the context bag key pending-approval filters match
// agent ids against.
const ContextAgentID = "agent_id"

// ContextCorrelationID is the context bag key carrying the correlation id
// of the decision that raised the request. Resolution audit events are
// stamped with it so the trail stays joinable end to end.
const ContextCorrelationID = "correlation_id"

// Request is the caller-supplied input to Manager.Request.
type Request struct {
	// Reason explains why approval is needed. Required.
	Reason string

	// ActionID identifies the agent action awaiting approval, if any.
	ActionID string

	// Details carries free-form data shown to the reviewer.
	Details map[string]interface{}

	// Priority defaults to normal when empty.
	Priority Priority

	// RequiredApprovers lists approver ids that must sign off, if the
	// caller tracks that externally.
	RequiredApprovers []string

	// Context is the open bag filters resolve against (e.g. agent_id).
	Context map[string]interface{}

	// RiskScore is the aggregate risk of the triggering decision.
	RiskScore int

	// Violations carries over violation records from the triggering
	// decision.
	Violations []rules.Violation

	// ExpiresIn overrides the manager's default expiration window when
	// positive.
	ExpiresIn time.Duration
}

// ApprovalRequest is one human-approval hold owned by a Manager.
// Callers receive copies; the stored request mutates only through the
// Manager's resolve operations.
type ApprovalRequest struct {
	// ID is the generated, unique request id.
	ID string `json:"id"`

	// Reason explains why approval is needed.
	Reason string `json:"reason"`

	// ActionID identifies the agent action awaiting approval, if any.
	ActionID string `json:"action_id,omitempty"`

	// Details carries free-form data shown to the reviewer.
	Details map[string]interface{} `json:"details,omitempty"`

	// Priority orders the pending queue.
	Priority Priority `json:"priority"`

	// RequiredApprovers lists approver ids that must sign off.
	RequiredApprovers []string `json:"required_approvers,omitempty"`

	// Context is the open bag filters resolve against.
	Context map[string]interface{} `json:"context,omitempty"`

	// RiskScore is the aggregate risk of the triggering decision.
	RiskScore int `json:"risk_score,omitempty"`

	// Violations carried over from the triggering decision.
	Violations []rules.Violation `json:"violations,omitempty"`

	// Metadata records resolver identity, comments, and reasons. Written
	// on resolution.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// CreatedAt is when the request was created.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the resolution deadline.
	ExpiresAt time.Time `json:"expires_at"`

	// ResolvedAt is when the request left pending. Zero while pending.
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// Expired reports whether the request's deadline has passed at t.
func (r *ApprovalRequest) Expired(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// AgentID returns the agent id from the request context, if present.
func (r *ApprovalRequest) AgentID() (string, bool) {
	if r.Context == nil {
		return "", false
	}
	v, ok := r.Context[ContextAgentID]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// clone returns a deep-enough copy for handing out of the manager:
// maps and slices are copied one level so callers cannot mutate stored
// state through the returned value.
func (r *ApprovalRequest) clone() *ApprovalRequest {
	out := *r
	out.Details = copyBag(r.Details)
	out.Context = copyBag(r.Context)
	out.Metadata = copyBag(r.Metadata)
	if r.RequiredApprovers != nil {
		out.RequiredApprovers = append([]string(nil), r.RequiredApprovers...)
	}
	if r.Violations != nil {
		out.Violations = append([]rules.Violation(nil), r.Violations...)
	}
	return &out
}

func copyBag(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Filter narrows GetPending results. Zero values match everything.
type Filter struct {
	// Priority matches requests with exactly this priority.
	Priority Priority

	// AgentID matches requests whose context agent_id equals this value.
	AgentID string

	// MinRiskScore matches requests with at least this risk score.
	MinRiskScore int
}

func (f Filter) matches(r *ApprovalRequest) bool {
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.AgentID != "" {
		id, ok := r.AgentID()
		if !ok || id != f.AgentID {
			return false
		}
	}
	if f.MinRiskScore > 0 && r.RiskScore < f.MinRiskScore {
		return false
	}
	return true
}

// Stats summarizes a manager's request population.
type Stats struct {
	// Total counts every request ever created.
	Total int `json:"total"`

	// ByStatus counts requests per lifecycle state. Pending reflects the
	// live pending store; terminal counts are monotonic and survive
	// resolved-history eviction.
	ByStatus map[Status]int `json:"by_status"`

	// PendingByPriority counts pending requests per priority.
	PendingByPriority map[Priority]int `json:"pending_by_priority"`
}
