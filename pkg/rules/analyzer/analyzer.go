package analyzer

import (
	"fmt"
	"sort"

	"warden-hq/warden/pkg/rules"
)

// Analyze inspects a rule set and returns a structured report of its
// dependency graph, cycles, safe evaluation order, and conflicts.
func Analyze(set *rules.Set) *Report {
	a := &analysis{
		set:       set,
		report:    &Report{RuleCount: set.Len()},
		adjacency: make(map[string][]string),
	}

	a.collectFindings()
	a.buildGraph()
	a.detectCycles()
	if len(a.report.Cycles) == 0 {
		a.report.EvaluationOrder = a.topologicalOrder()
	}
	a.detectConflicts()

	return a.report
}

type analysis struct {
	set    *rules.Set
	report *Report

	// adjacency maps a rule id to the ids that depend on it.
	adjacency map[string][]string
}

// collectFindings surfaces per-rule configuration problems the engine
// tolerates at runtime.
func (a *analysis) collectFindings() {
	for _, rule := range a.set.All() {
		for _, cond := range rule.Conditions {
			if cond.Field == "" {
				a.addFinding(rule.ID, FindingEmptyField,
					fmt.Sprintf("condition with operator %q has no field path", cond.Operator))
			}
			if !rules.KnownOperator(cond.Operator) {
				a.addFinding(rule.ID, FindingUnknownOperator,
					fmt.Sprintf("operator %q on field %q is not recognized; the rule will never match", cond.Operator, cond.Field))
			}
		}

		if rule.RiskWeight < 0 {
			a.addFinding(rule.ID, FindingNegativeRiskWeight,
				fmt.Sprintf("risk weight %d is negative", rule.RiskWeight))
		}

		for _, dep := range rule.DependsOn {
			if _, ok := a.set.Get(dep); !ok {
				a.addFinding(rule.ID, FindingUnknownDependency,
					fmt.Sprintf("depends_on references unknown rule %q", dep))
			}
		}
	}
}

func (a *analysis) addFinding(ruleID string, kind FindingKind, detail string) {
	a.report.Findings = append(a.report.Findings, Finding{
		RuleID: ruleID,
		Kind:   kind,
		Detail: detail,
	})
}

// buildGraph adds an edge A->B when B declares an explicit dependency on A
// or when A produces a field B's conditions read.
func (a *analysis) buildGraph() {
	all := a.set.All()

	for _, to := range all {
		for _, dep := range to.DependsOn {
			if _, ok := a.set.Get(dep); ok {
				a.addEdge(dep, to.ID, "explicit")
			}
		}
	}

	for _, from := range all {
		for _, field := range from.Produces {
			for _, to := range all {
				if to.ID == from.ID {
					continue
				}
				if consumesField(to, field) {
					a.addEdge(from.ID, to.ID, "field:"+field)
				}
			}
		}
	}

	// Deterministic edge order for display and traversal.
	sort.Slice(a.report.Edges, func(i, j int) bool {
		ei, ej := a.report.Edges[i], a.report.Edges[j]
		if ei.From != ej.From {
			return ei.From < ej.From
		}
		if ei.To != ej.To {
			return ei.To < ej.To
		}
		return ei.Reason < ej.Reason
	})
	for id := range a.adjacency {
		sort.Strings(a.adjacency[id])
	}
}

func (a *analysis) addEdge(from, to, reason string) {
	for _, e := range a.report.Edges {
		if e.From == from && e.To == to && e.Reason == reason {
			return
		}
	}
	a.report.Edges = append(a.report.Edges, Edge{From: from, To: to, Reason: reason})

	for _, existing := range a.adjacency[from] {
		if existing == to {
			return
		}
	}
	a.adjacency[from] = append(a.adjacency[from], to)
}

func consumesField(rule *rules.BusinessRule, field string) bool {
	for _, f := range rule.ConsumedFields() {
		if f == field {
			return true
		}
	}
	return false
}

// detectCycles runs a depth-first traversal with a recursion stack and
// records each cycle as the ordered rule ids forming it.
func (a *analysis) detectCycles() {
	visited := make(map[string]bool)
	inProgress := make(map[string]bool)

	ids := a.set.IDs()
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			a.checkCycle(id, visited, inProgress, nil)
		}
	}
}

func (a *analysis) checkCycle(id string, visited, inProgress map[string]bool, path []string) {
	visited[id] = true
	inProgress[id] = true
	path = append(path, id)

	for _, next := range a.adjacency[id] {
		if inProgress[next] {
			a.recordCycle(path, next)
			continue
		}
		if !visited[next] {
			a.checkCycle(next, visited, inProgress, path)
		}
	}

	inProgress[id] = false
}

// recordCycle trims the path to the cycle members and closes the loop by
// repeating the entry id.
func (a *analysis) recordCycle(path []string, entry string) {
	start := 0
	for i, id := range path {
		if id == entry {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), entry)
	a.report.Cycles = append(a.report.Cycles, cycle)
}

// topologicalOrder produces one valid evaluation order over the acyclic
// graph via Kahn's algorithm, breaking ties by rule id for determinism.
func (a *analysis) topologicalOrder() []string {
	indegree := make(map[string]int, a.set.Len())
	for _, id := range a.set.IDs() {
		indegree[id] = 0
	}
	for _, targets := range a.adjacency {
		for _, to := range targets {
			indegree[to]++
		}
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, to := range a.adjacency[id] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = insertSorted(ready, to)
			}
		}
	}

	if len(order) != a.set.Len() {
		// Unreachable when detectCycles found nothing.
		return nil
	}
	return order
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

// detectConflicts flags rule pairs with overlapping conditions and
// contradictory action types at equal priority. These are configuration
// smells: which rule "wins" would depend on precedence alone, silently.
func (a *analysis) detectConflicts() {
	all := a.set.All()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			ra, rb := all[i], all[j]
			if ra.Priority != rb.Priority {
				continue
			}
			if !contradictoryActions(ra, rb) && !contradictoryActions(rb, ra) {
				continue
			}

			fields, overlap := conditionsOverlap(ra, rb)
			if !overlap {
				continue
			}

			a.report.Conflicts = append(a.report.Conflicts, Conflict{
				RuleA:    ra.ID,
				RuleB:    rb.ID,
				Priority: ra.Priority,
				Fields:   fields,
				Detail: fmt.Sprintf("rules %q and %q can match the same action at priority %d with contradictory outcomes",
					ra.ID, rb.ID, ra.Priority),
			})
		}
	}
}

// contradictoryActions reports whether a is permissive (allow/warn-only
// style actions) while b denies.
func contradictoryActions(a, b *rules.BusinessRule) bool {
	if !b.HasActionType(rules.ActionDeny) {
		return false
	}
	if len(a.Actions) == 0 || a.HasActionType(rules.ActionDeny) {
		return false
	}
	for _, act := range a.Actions {
		switch act.Type {
		case rules.ActionAllow, rules.ActionWarn, rules.ActionNotify, rules.ActionLog:
		default:
			return false
		}
	}
	return true
}

// conditionsOverlap reports whether two rules' condition sets are
// non-disjoint over shared fields: they read at least one common field and
// no shared field carries provably disjoint equality constraints.
func conditionsOverlap(a, b *rules.BusinessRule) ([]string, bool) {
	shared := sharedFields(a, b)
	if len(shared) == 0 {
		return nil, false
	}

	for _, field := range shared {
		av, aok := equalsValue(a, field)
		bv, bok := equalsValue(b, field)
		if aok && bok && fmt.Sprint(av) != fmt.Sprint(bv) {
			// Both pin the field to different constants: disjoint.
			return nil, false
		}
	}

	return shared, true
}

func sharedFields(a, b *rules.BusinessRule) []string {
	bFields := make(map[string]bool)
	for _, f := range b.ConsumedFields() {
		bFields[f] = true
	}

	var shared []string
	for _, f := range a.ConsumedFields() {
		if bFields[f] {
			shared = append(shared, f)
		}
	}
	sort.Strings(shared)
	return shared
}

// equalsValue returns the comparison value of the rule's equals condition
// on the field, if it has exactly that constraint.
func equalsValue(rule *rules.BusinessRule, field string) (interface{}, bool) {
	for _, c := range rule.Conditions {
		if c.Field == field && c.Operator == rules.OperatorEquals {
			return c.Value, true
		}
	}
	return nil, false
}
