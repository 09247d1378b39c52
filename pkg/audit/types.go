package audit

import (
	"context"
	"time"
)

// EventType identifies the kind of governance transition an event records.
type EventType string

const (
	EventActionEvaluated     EventType = "action_evaluated"
	EventActionApproved      EventType = "action_approved"
	EventActionDenied        EventType = "action_denied"
	EventActionExecuted      EventType = "action_executed"
	EventApprovalRequested   EventType = "approval_requested"
	EventApprovalResolved    EventType = "approval_resolved"
	EventRateLimitHit        EventType = "rate_limit_hit"
	EventSecurityAlert       EventType = "security_alert"
	EventComplianceViolation EventType = "compliance_violation"
	EventRuleTriggered       EventType = "rule_triggered"
	EventConfigChanged       EventType = "config_changed"
)

// Outcome is the result classification of the recorded transition.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// RiskLevel buckets the risk carried by an event.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelForScore buckets an aggregate risk score into a RiskLevel.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Event is one entry in the audit trail.
type Event struct {
	// ID is the unique event id (UUID v4).
	ID string `json:"id"`

	// Type classifies the transition.
	Type EventType `json:"type"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`

	// Action identifies the agent action the event concerns.
	Action string `json:"action"`

	// Outcome classifies the result of the transition.
	Outcome Outcome `json:"outcome"`

	// AgentID, SessionID, and UserID identify the acting principals.
	AgentID   string `json:"agent_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`

	// RiskLevel buckets the risk carried by the event.
	RiskLevel RiskLevel `json:"risk_level,omitempty"`

	// Details carries event-specific payload.
	Details map[string]interface{} `json:"details,omitempty"`

	// Metadata carries caller-supplied annotations.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CorrelationID links all events produced while resolving one action.
	CorrelationID string `json:"correlation_id,omitempty"`

	// ParentEventID points at the event that caused this one.
	ParentEventID string `json:"parent_event_id,omitempty"`
}

// Sink is the write contract the engine and approval manager emit through.
// Implementations must not block the caller on persistence: Log initiates
// the write and returns.
type Sink interface {
	Log(event *Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event *Event)

// Log implements Sink.
func (f SinkFunc) Log(event *Event) { f(event) }

// NopSink discards all events.
type NopSink struct{}

// Log implements Sink.
func (NopSink) Log(*Event) {}

// Query selects events from a Store.
type Query struct {
	// CorrelationID restricts results to one decision trail.
	CorrelationID string

	// AgentID restricts results to one agent.
	AgentID string

	// Types restricts results to the listed event types.
	Types []EventType

	// Since restricts results to events at or after this time.
	Since time.Time

	// Limit bounds the result count; zero means no limit.
	Limit int
}

// Store is the persistence contract behind the async recorder.
type Store interface {
	// Store persists one event.
	Store(ctx context.Context, event *Event) error

	// Query retrieves events matching the query, newest first.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	// DeleteBefore removes events older than the cutoff and returns how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
