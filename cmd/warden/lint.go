package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/rules/analyzer"
	"warden-hq/warden/pkg/rules/source"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule catalogs",
	Long: `Validate rule catalog files and analyze rule dependencies.

The lint command parses catalog files and runs the dependency analyzer:
  - YAML syntax and rule structure validation
  - Unknown operator and unknown dependency detection
  - Dependency cycle detection
  - Equal-priority conflict detection (permit vs deny on overlapping
    conditions)
  - Safe evaluation order derivation

Examples:
  # Lint a single catalog
  warden lint --file rules.yaml

  # Lint a directory of catalogs as one set
  warden lint --dir rules/

  # Strict mode (conflicts as errors)
  warden lint --file rules.yaml --strict

  # JSON output for CI/CD
  warden lint --file rules.yaml --format json`,
	RunE: lintCatalogs,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "catalog file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of catalog files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat conflicts as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintCatalogs(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var list []*rules.BusinessRule

	if lintFlags.file != "" {
		data, err := os.ReadFile(lintFlags.file)
		if err != nil {
			return cli.NewCommandError("lint", err)
		}
		list, err = source.ParseCatalog(data, lintFlags.file)
		if err != nil {
			return cli.NewCommandError("lint", err)
		}
	}

	if lintFlags.dir != "" {
		files, err := catalogFiles(lintFlags.dir)
		if err != nil {
			return cli.NewCommandError("lint", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no catalog files found in %q", lintFlags.dir)
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return cli.NewCommandError("lint", err)
			}
			fileRules, err := source.ParseCatalog(data, file)
			if err != nil {
				return cli.NewCommandError("lint", err)
			}
			list = append(list, fileRules...)
		}
	}

	set, err := rules.NewSet(list)
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	report := analyzer.Analyze(set)

	if lintFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if len(report.Findings) > 0 || len(report.Cycles) > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("catalog has defects"))
	}
	if lintFlags.strict && len(report.Conflicts) > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("catalog has conflicts"))
	}

	return nil
}

func catalogFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list catalog files: %w", err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func printReport(report *analyzer.Report) {
	fmt.Printf("Analyzed %d rule(s)\n\n", report.RuleCount)

	for _, f := range report.Findings {
		fmt.Printf("✗ Error: %s\n", f)
	}

	for _, cycle := range report.Cycles {
		fmt.Printf("✗ Error: dependency cycle:")
		for i, id := range cycle {
			if i > 0 {
				fmt.Print(" ->")
			}
			fmt.Printf(" %s", id)
		}
		fmt.Println()
	}

	for _, c := range report.Conflicts {
		fmt.Printf("⚠  Conflict: %s vs %s at priority %d (%s)\n",
			c.RuleA, c.RuleB, c.Priority, c.Detail)
	}

	if report.Clean() {
		fmt.Println("✓ Syntax valid")
		fmt.Println("✓ No dependency cycles")
		fmt.Println("✓ No conflicting rules")
	}

	if len(report.EvaluationOrder) > 0 {
		fmt.Printf("\nSafe evaluation order: %v\n", report.EvaluationOrder)
	}

	fmt.Printf("\nSummary:\n  %d error(s), %d conflict(s)\n",
		len(report.Findings)+len(report.Cycles), len(report.Conflicts))
}
