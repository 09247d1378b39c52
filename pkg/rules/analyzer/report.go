package analyzer

import "fmt"

// FindingKind classifies a per-rule configuration finding.
type FindingKind string

const (
	// FindingUnknownOperator marks a condition whose operator is outside
	// the closed set. The engine excludes such rules from matching.
	FindingUnknownOperator FindingKind = "unknown_operator"

	// FindingUnknownDependency marks a depends_on reference to a rule id
	// not present in the set.
	FindingUnknownDependency FindingKind = "unknown_dependency"

	// FindingEmptyField marks a condition with an empty field path.
	FindingEmptyField FindingKind = "empty_field"

	// FindingNegativeRiskWeight marks a rule with a negative risk weight.
	FindingNegativeRiskWeight FindingKind = "negative_risk_weight"
)

// Finding is one structured configuration problem tied to a rule.
type Finding struct {
	RuleID string      `json:"rule_id"`
	Kind   FindingKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (f Finding) String() string {
	return fmt.Sprintf("rule %s: %s: %s", f.RuleID, f.Kind, f.Detail)
}

// Edge is one directed dependency between two rules: From must be
// evaluated before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Reason is "explicit" for a declared depends_on, or "field:<path>"
	// when From produces a field To's conditions read.
	Reason string `json:"reason"`
}

// Conflict is a rule pair the engine cannot resolve deterministically:
// overlapping conditions, contradictory actions, equal priority.
type Conflict struct {
	RuleA    string `json:"rule_a"`
	RuleB    string `json:"rule_b"`
	Priority int    `json:"priority"`

	// Fields are the condition fields both rules read.
	Fields []string `json:"fields"`

	Detail string `json:"detail"`
}

// Report is the result of analyzing one rule set.
type Report struct {
	// RuleCount is the number of rules analyzed.
	RuleCount int `json:"rule_count"`

	// Findings are per-rule configuration problems.
	Findings []Finding `json:"findings,omitempty"`

	// Edges is the dependency graph.
	Edges []Edge `json:"edges,omitempty"`

	// Cycles lists each dependency cycle as the ordered rule ids forming
	// it, first id repeated at the end.
	Cycles [][]string `json:"cycles,omitempty"`

	// EvaluationOrder is a topological order over the graph. Empty when
	// the graph has cycles. Advisory for rule authors; the engine's
	// runtime order remains priority-based.
	EvaluationOrder []string `json:"evaluation_order,omitempty"`

	// Conflicts are contradictory rule pairs.
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Clean returns true when the report carries no findings, cycles, or
// conflicts.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0 && len(r.Cycles) == 0 && len(r.Conflicts) == 0
}
