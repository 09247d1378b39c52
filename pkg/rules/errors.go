package rules

import "errors"

var (
	// ErrDuplicateRuleID indicates two rules in one set share an id.
	ErrDuplicateRuleID = errors.New("duplicate rule id")

	// ErrEmptyRuleID indicates a rule without an id.
	ErrEmptyRuleID = errors.New("empty rule id")
)
