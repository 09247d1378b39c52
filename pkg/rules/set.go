package rules

import (
	"fmt"
	"sort"
)

// Set is an id-keyed collection of rules with unique ids.
// A Set is immutable once handed to the engine for an evaluation pass.
type Set struct {
	byID  map[string]*BusinessRule
	order []string
}

// NewSet builds a rule set from a list of rules.
// Duplicate ids and empty ids are configuration errors.
func NewSet(list []*BusinessRule) (*Set, error) {
	s := &Set{
		byID: make(map[string]*BusinessRule, len(list)),
	}

	for _, rule := range list {
		if rule == nil {
			continue
		}
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, ErrEmptyRuleID)
		}
		if _, exists := s.byID[rule.ID]; exists {
			return nil, fmt.Errorf("rule id %q: %w", rule.ID, ErrDuplicateRuleID)
		}
		s.byID[rule.ID] = rule
		s.order = append(s.order, rule.ID)
	}

	return s, nil
}

// Get returns the rule with the given id.
func (s *Set) Get(id string) (*BusinessRule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.byID)
}

// IDs returns all rule ids in load order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns all rules in load order.
func (s *Set) All() []*BusinessRule {
	out := make([]*BusinessRule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Enabled returns the enabled rules sorted by priority descending,
// ties broken by rule id ascending. Iteration order is never dependent on
// map iteration, so repeated evaluations over the same set are stable.
func (s *Set) Enabled() []*BusinessRule {
	var out []*BusinessRule
	for _, id := range s.order {
		if rule := s.byID[id]; rule.IsEnabled() {
			out = append(out, rule)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})

	return out
}
