package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - governance engine for autonomous agent actions",
	Long: `Warden evaluates proposed agent actions against a declarative rule
catalog and decides whether each action is allowed, denied, rate limited, or
held for human approval.

Every decision produces a correlated audit trail:
  - Rule matches and the winning governance action
  - Approval requests with priority and expiry
  - Rate-limit hits per rule and agent
  - Compliance violations and security alerts`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
