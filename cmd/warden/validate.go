package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a warden configuration file without starting the service.

The validate command loads the config, applies defaults and environment
overrides, and reports every invalid field at once:
  - Unknown audit backends, log levels, and output formats
  - Malformed cron schedules (approval sweep, retention pruning)
  - Malformed redaction patterns
  - Out-of-range limits and timeouts

Examples:
  # Validate the default config file
  warden validate

  # Validate a specific file
  warden validate --config /etc/warden/config.yaml

  # JSON output for CI/CD
  warden validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)

	var verr config.ValidationError
	if errors.As(err, &verr) {
		if validateFlags.format == "json" {
			if ferr := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, verr); ferr != nil {
				return ferr
			}
		} else {
			fmt.Printf("Configuration invalid (%d problems):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  ✗ %s: %s\n", fe.Field, fe.Message)
			}
		}
		return cli.NewCommandError("validate", errors.New("configuration invalid"))
	}
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	if validateFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, cfg)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Rules catalog:  %s (watch: %t)\n", cfg.Rules.Path, cfg.Rules.Watch)
	fmt.Printf("  Audit backend:  %s\n", cfg.Audit.Backend)
	fmt.Printf("  Sweep schedule: %s\n", cfg.Approval.SweepSchedule)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("  Metrics:        %s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	return nil
}
