package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/approval"
	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/audit/storage"
	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/ratelimit"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/rules/engine"
	"warden-hq/warden/pkg/rules/source"
)

var evaluateFlags struct {
	rulesPath string
	action    string
	category  string
	fields    []string
	bag       []string
	format    string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single agent action against a rule catalog",
	Long: `Evaluate one proposed agent action against a rule catalog and print
the governance decision.

Field and context values are passed as key=value pairs; values that parse as
booleans or numbers are typed accordingly. Dotted keys build nested maps, so
--field metadata.region=us-east-1 produces {"metadata": {"region": ...}}.

Examples:
  # Evaluate a deployment action
  warden evaluate --rules rules.yaml --action deploy_service \
      --field environment=production --field agent_id=deploy-bot

  # Supply evaluation context separately from action fields
  warden evaluate --rules rules.yaml --action delete_index \
      --field index=users --context agent_id=cleanup-bot --context dry_run=true

  # JSON output
  warden evaluate --rules rules.yaml --action deploy_service --format json`,
	RunE: evaluateAction,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.rulesPath, "rules", "r", "", "rule catalog file or directory (required)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.action, "action", "a", "", "action name (required)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.category, "category", "", "action category")
	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.fields, "field", nil, "action field as key=value (repeatable)")
	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.bag, "context", nil, "context entry as key=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")

	evaluateCmd.MarkFlagRequired("rules")
	evaluateCmd.MarkFlagRequired("action")
}

func evaluateAction(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	set, err := source.NewFileSource(evaluateFlags.rulesPath, nil).Load(ctx)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	fields, err := parsePairs(evaluateFlags.fields)
	if err != nil {
		return err
	}
	bag, err := parsePairs(evaluateFlags.bag)
	if err != nil {
		return err
	}

	sink := storage.NewMemoryStore(storage.DefaultMaxEvents)
	defer sink.Close()

	eng, err := engine.New(nil, set, engine.Deps{
		Approvals: approval.NewManager(nil),
		Limiter:   ratelimit.NewLimiter(),
		Audit:     syncSink{store: sink},
	}, nil)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	decision, err := eng.Evaluate(ctx, &rules.AgentAction{
		Name:     evaluateFlags.action,
		Category: evaluateFlags.category,
		Fields:   fields,
	}, bag)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if evaluateFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, decision)
	}

	printDecision(decision)
	return nil
}

func printDecision(d *engine.Decision) {
	fmt.Printf("Status:      %s\n", d.Status)
	fmt.Printf("Allowed:     %t\n", d.Allowed)
	fmt.Printf("Risk score:  %d\n", d.RiskScore)
	fmt.Printf("Correlation: %s\n", d.CorrelationID)

	if len(d.MatchedRules) > 0 {
		fmt.Println("\nMatched rules:")
		for _, m := range d.MatchedRules {
			fmt.Printf("  - %s (%s, priority %d, risk %d)\n",
				m.RuleID, m.RuleName, m.Priority, m.RiskWeight)
		}
	}

	for _, v := range d.Violations {
		fmt.Printf("\n✗ Violation [%s]: %s (%s)\n", v.Severity, v.Message, v.RuleID)
	}
	for _, w := range d.Warnings {
		fmt.Printf("⚠  Warning: %s\n", w)
	}
	if d.Approval != nil {
		fmt.Printf("\nApproval required: request %s (priority %s, expires %s)\n",
			d.Approval.ID, d.Approval.Priority, d.Approval.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	for ruleID, res := range d.RateLimits {
		fmt.Printf("Rate limit [%s]: %d/%d remaining, resets %s\n",
			ruleID, res.Remaining, res.Limit, res.ResetAt.Format("15:04:05"))
	}
}

// syncSink writes audit events straight to the store. One-shot evaluation
// has no reason to buffer.
type syncSink struct {
	store audit.Store
}

func (s syncSink) Log(event *audit.Event) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.store.Store(context.Background(), event)
}

// parsePairs turns key=value flags into a nested field map.
func parsePairs(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]interface{})
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		setNested(out, strings.Split(key, "."), coerceValue(raw))
	}
	return out, nil
}

// setNested writes a value at a dotted key path, building intermediate maps.
func setNested(m map[string]interface{}, path []string, value interface{}) {
	for i, seg := range path {
		if i == len(path)-1 {
			m[seg] = value
			return
		}
		next, ok := m[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[seg] = next
		}
		m = next
	}
}

// coerceValue types flag values: bools and numbers parse, everything else
// stays a string.
func coerceValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
