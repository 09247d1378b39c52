package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNoRulesLoaded indicates the engine has no rule set.
	ErrNoRulesLoaded = errors.New("no rules loaded")
)

// UnknownOperatorError indicates a condition carries an operator outside
// the closed set. The engine excludes the whole rule from matching when
// this occurs; the analyzer reports it as a finding.
type UnknownOperatorError struct {
	RuleID   string
	Field    string
	Operator string
}

// Error returns the error message.
func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("rule %s: unknown operator %q on field %q", e.RuleID, e.Operator, e.Field)
}

// ReloadError indicates a rule reload failure.
type ReloadError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("rule reload failed for %q: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ReloadError) Unwrap() error {
	return e.Cause
}
