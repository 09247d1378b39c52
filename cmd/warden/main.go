// Warden is a governance engine for autonomous agent actions.
//
// It evaluates proposed agent actions against a declarative rule catalog and
// decides whether each action is allowed, denied, rate limited, or held for
// human approval, while recording a correlated audit trail:
//   - Declarative YAML rule catalogs with hot reload
//   - Deny / approve / rate-limit / escalate decision precedence
//   - Human-in-the-loop approval workflow with expiry
//   - Fixed-window rate limiting per rule and agent
//   - Audit trail with memory and SQLite backends
//
// Usage:
//
//	# Start the governance service
//	warden run --config /etc/warden/config.yaml
//
//	# Validate a rule catalog
//	warden lint --file rules.yaml
//
//	# Evaluate a single action from the command line
//	warden evaluate --rules rules.yaml --action deploy_service \
//	    --field environment=production --field agent_id=deploy-bot
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
