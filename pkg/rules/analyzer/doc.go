// Package analyzer performs offline analysis of a business rule set.
//
// It builds a directed dependency graph over rules, detects cycles,
// proposes a topological evaluation order when acyclic, and flags rule
// pairs the engine cannot adjudicate deterministically: overlapping
// conditions with contradictory actions at equal priority.
//
// The analyzer runs at configuration load or in a lint step, never on the
// evaluation hot path. Problems that the engine tolerates at runtime by
// failing open, like unknown operators, are surfaced here as structured
// findings so rule authors catch them before deployment.
package analyzer
