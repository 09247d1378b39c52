package rules

// Operator is the closed set of condition operators.
// Rule content comes from configuration files, so operators are a fixed
// dispatch table, never dynamic code.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// KnownOperator returns true if op is part of the closed operator set.
func KnownOperator(op Operator) bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorIn, OperatorNotIn, OperatorExists, OperatorNotExists,
		OperatorGreaterThan, OperatorLessThan:
		return true
	}
	return false
}

// ConditionLogic determines how a rule's conditions combine.
type ConditionLogic string

const (
	// LogicAll requires every condition to match (conjunction).
	// An empty condition list matches unconditionally.
	LogicAll ConditionLogic = "all"

	// LogicAny requires at least one condition to match (disjunction).
	// An empty condition list never matches.
	LogicAny ConditionLogic = "any"
)

// ActionType is the kind of governance action a rule contributes.
type ActionType string

const (
	ActionAllow           ActionType = "allow"
	ActionWarn            ActionType = "warn"
	ActionDeny            ActionType = "deny"
	ActionRequireApproval ActionType = "require_approval"
	ActionRateLimit       ActionType = "rate_limit"
	ActionEscalate        ActionType = "escalate"
	ActionNotify          ActionType = "notify"
	ActionLog             ActionType = "log"
)

// Condition is a single field/operator/value test contributing to a rule's
// predicate. Field is a dotted path resolved against the action's fields,
// falling back to the evaluation context bag. Value may be nil for existence
// checks.
type Condition struct {
	Field    string      `yaml:"field" json:"field"`
	Operator Operator    `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value,omitempty" json:"value,omitempty"`
}

// RuleAction is one action a matched rule contributes to the decision.
type RuleAction struct {
	Type    ActionType `yaml:"type" json:"type"`
	Message string     `yaml:"message,omitempty" json:"message,omitempty"`
}

// BusinessRule is a named, prioritized, enable-able predicate-to-actions
// mapping. Rules are immutable once loaded into an evaluation pass.
type BusinessRule struct {
	// ID is the unique, stable identifier within a rule set.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable rule name.
	Name string `yaml:"name" json:"name"`

	// Category tags the rule's domain (e.g. "security", "operational").
	Category string `yaml:"category,omitempty" json:"category,omitempty"`

	// Enabled gates participation in evaluation. Defaults to true when
	// unset in YAML (see pkg/rules/source).
	Enabled bool `yaml:"-" json:"enabled"`

	// Priority orders matched rules; higher evaluates and weighs first.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Conditions is the ordered predicate list combined under ConditionLogic.
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	// ConditionLogic is "all" (default) or "any".
	ConditionLogic ConditionLogic `yaml:"condition_logic,omitempty" json:"condition_logic,omitempty"`

	// Actions are the ordered governance actions the rule contributes.
	Actions []RuleAction `yaml:"actions,omitempty" json:"actions,omitempty"`

	// RiskWeight is the rule's non-negative contribution to the aggregate
	// risk score of a decision.
	RiskWeight int `yaml:"risk_weight,omitempty" json:"risk_weight,omitempty"`

	// Tags carry free-form metadata for rule authors.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// DependsOn declares explicit evaluation-order dependencies on other
	// rule ids, consumed by the dependency analyzer.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`

	// Produces declares context fields this rule's actions write or assume,
	// used by the analyzer to derive field-level dependency edges.
	Produces []string `yaml:"produces,omitempty" json:"produces,omitempty"`
}

// Logic returns the effective condition logic, defaulting to LogicAll.
func (r *BusinessRule) Logic() ConditionLogic {
	if r.ConditionLogic == LogicAny {
		return LogicAny
	}
	return LogicAll
}

// IsEnabled returns true if the rule participates in evaluation.
func (r *BusinessRule) IsEnabled() bool {
	return r.Enabled
}

// HasActionType returns true if the rule has at least one action of the
// given type.
func (r *BusinessRule) HasActionType(t ActionType) bool {
	for _, a := range r.Actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

// ActionsByType returns all actions of the given type, in rule order.
func (r *BusinessRule) ActionsByType(t ActionType) []RuleAction {
	var out []RuleAction
	for _, a := range r.Actions {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// ConsumedFields returns the set of fields the rule's conditions read.
func (r *BusinessRule) ConsumedFields() []string {
	seen := make(map[string]bool, len(r.Conditions))
	var out []string
	for _, c := range r.Conditions {
		if c.Field == "" || seen[c.Field] {
			continue
		}
		seen[c.Field] = true
		out = append(out, c.Field)
	}
	return out
}
