// Package engine evaluates agent actions against a business rule set and
// produces a single governance decision.
//
// Evaluation filters the set to enabled rules, matches each rule's
// conditions against the action and context bag, orders the matches by
// priority (ties by rule id), aggregates risk and violations, and resolves
// one status by fixed action-type precedence:
//
//	deny > require_approval > rate_limit > escalate > warn/notify/log > allow
//
// Matched require_approval and rate_limit actions trigger side effects on
// the injected approval manager and rate limiter; every evaluation is
// mirrored to the audit sink under one correlation id.
//
// Bad rule content never crashes the host: a condition referencing an
// unknown field evaluates to non-match, and a rule carrying an unrecognized
// operator is excluded from matching entirely. The analyzer package is the
// place such problems are caught before deployment.
package engine
