// Package rules defines the declarative rule schema consumed by the
// governance engine.
//
// A BusinessRule is pure data: a named, prioritized mapping from a set of
// field conditions to a list of governance actions. Rule catalogs extend the
// system without code changes; they are authored in YAML and loaded through
// pkg/rules/source.
//
// The package also defines AgentAction, the unit of work an autonomous agent
// proposes, and Set, an id-keyed collection of rules with uniqueness
// enforcement.
//
// # Example catalog
//
//	rules:
//	  - id: prod-deploy-approval
//	    name: Production deploys need sign-off
//	    category: operational
//	    priority: 90
//	    condition_logic: all
//	    conditions:
//	      - field: environment
//	        operator: equals
//	        value: production
//	    actions:
//	      - type: require_approval
//	        message: Production deployment requires human approval
//	    risk_weight: 40
//
// Evaluation semantics live in pkg/rules/engine; offline analysis in
// pkg/rules/analyzer.
package rules
