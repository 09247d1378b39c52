package rules

// Violation records one matched rule that denied an action or demanded
// human sign-off. Violations travel with the decision and with any approval
// request it spawns.
type Violation struct {
	// RuleID is the id of the rule that raised the violation.
	RuleID string `json:"rule_id"`

	// RuleName is the human-readable name of that rule.
	RuleName string `json:"rule_name"`

	// Severity is the violation severity ("low", "medium", "high",
	// "critical"), derived from the rule's risk weight.
	Severity string `json:"severity"`

	// Message is the rule's action message, if any.
	Message string `json:"message,omitempty"`
}
