package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/approval"
	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/audit/recorder"
	"warden-hq/warden/pkg/audit/retention"
	"warden-hq/warden/pkg/audit/storage"
	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/ratelimit"
	"warden-hq/warden/pkg/rules/analyzer"
	"warden-hq/warden/pkg/rules/engine"
	"warden-hq/warden/pkg/rules/source"
	"warden-hq/warden/pkg/telemetry/health"
	"warden-hq/warden/pkg/telemetry/logging"
	"warden-hq/warden/pkg/telemetry/metrics"
)

var runFlags struct {
	rulesPath string
	logLevel  string
	dryRun    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the warden governance service",
	Long: `Start the warden governance service with the specified configuration.

The service loads the rule catalog, opens the audit store, starts the approval
sweeper and retention scheduler, and serves Prometheus metrics. With catalog
watching enabled it reloads rules when the catalog files change on disk.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override the rule catalog path
  warden run --rules /etc/warden/rules/

  # Validate config and catalog without starting the service
  warden run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.rulesPath, "rules", "r", "", "override rule catalog path")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and catalog without starting the service")
}

func runService(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.rulesPath != "" {
		cfg.Rules.Path = runFlags.rulesPath
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	// Initialize logging based on config
	logger, err := logging.SetDefault(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	// Load the rule catalog
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ruleSource := source.NewFileSource(cfg.Rules.Path, logger)
	set, err := ruleSource.Load(ctx)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("load rule catalog: %w", err))
	}

	if runFlags.dryRun {
		report := analyzer.Analyze(set)
		if !report.Clean() {
			for _, f := range report.Findings {
				fmt.Printf("✗ %s\n", f)
			}
			for _, cycle := range report.Cycles {
				fmt.Printf("✗ dependency cycle: %v\n", cycle)
			}
			return cli.NewCommandError("run", errors.New("rule catalog has defects"))
		}
		fmt.Println("✓ Configuration valid")
		fmt.Printf("✓ Rule catalog valid (%d rules)\n", set.Len())
		return nil
	}

	printBanner(cfg, set.Len())

	// Open the audit store
	slog.Info("initializing audit store", "backend", cfg.Audit.Backend)
	var store audit.Store
	switch cfg.Audit.Backend {
	case "sqlite":
		store, err = storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
			WALMode:      cfg.Audit.SQLite.WALMode,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("open sqlite audit store: %w", err))
		}
	case "memory":
		store = storage.NewMemoryStore(cfg.Audit.MaxEvents)
	default:
		return cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend: %s", cfg.Audit.Backend))
	}
	defer store.Close()

	// Recorder drains engine events to the store; the redactor keeps
	// credentials out of the persisted trail.
	recorderConfig := &recorder.Config{
		AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	}
	if cfg.Telemetry.Logging.Redact {
		recorderConfig.Scrub = logging.NewRedactor(cfg.Telemetry.Logging.RedactPatterns).ScrubMap
	}
	auditRecorder := recorder.NewRecorder(store, recorderConfig)
	defer auditRecorder.Close()

	// Start the retention scheduler if a schedule is configured
	if cfg.Audit.Retention.Schedule != "" {
		pruner := retention.NewPruner(store, &retention.Config{
			RetentionDays: cfg.Audit.Retention.Days,
			PruneSchedule: cfg.Audit.Retention.Schedule,
		})
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				slog.Debug("audit retention scheduler started", "next_pruning", next)
			}
		}
	}

	// Approval manager with expiry sweeping
	approvals := approval.NewManager(&approval.Config{
		DefaultExpiration:    cfg.Approval.DefaultExpiration,
		ResolvedHistoryLimit: cfg.Approval.ResolvedHistoryLimit,
		Audit:                auditRecorder,
		OnRequested: func(req *approval.ApprovalRequest) error {
			slog.Info("approval requested",
				"request_id", req.ID,
				"priority", req.Priority,
				"expires_at", req.ExpiresAt,
			)
			return nil
		},
		OnResolved: func(req *approval.ApprovalRequest) error {
			slog.Info("approval resolved",
				"request_id", req.ID,
				"status", req.Status,
			)
			return nil
		},
	})
	sweeper := approval.NewSweeper(approvals, cfg.Approval.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		slog.Warn("failed to start approval sweeper", "error", err)
	} else {
		defer sweeper.Stop()
	}

	// Readiness covers the audit store and the loaded catalog
	checker := health.New(0)
	checker.Register("audit_store", func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	})

	// Metrics collector and telemetry endpoint
	var collector *metrics.Collector
	var metricsServer *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(nil)

		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		mux.HandleFunc("/health/live", checker.LivenessHandler())
		mux.HandleFunc("/health/ready", checker.ReadinessHandler())
		metricsServer = &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
	}

	// Governance engine
	eng, err := engine.New(&engine.Config{
		DefaultRateLimit:  cfg.RateLimit.DefaultLimit,
		DefaultRateWindow: cfg.RateLimit.DefaultWindow,
		LimitType:         cfg.RateLimit.LimitType,
		MaxRules:          cfg.Rules.MaxRules,
	}, set, engine.Deps{
		Approvals: approvals,
		Limiter:   ratelimit.NewLimiter(),
		Audit:     auditRecorder,
		Metrics:   recorderOrNil(collector),
	}, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	checker.Register("rule_catalog", func(ctx context.Context) error {
		if eng.Rules().Len() == 0 {
			return errors.New("no rules loaded")
		}
		return nil
	})

	errChan := make(chan error, 1)

	// Watch the catalog for changes if enabled
	var watcher *source.Watcher
	if cfg.Rules.Watch {
		watcher, err = source.NewWatcher(&source.WatcherConfig{
			Path:             cfg.Rules.Path,
			DebounceInterval: cfg.Rules.DebounceInterval,
			SkipHidden:       true,
		}, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("create catalog watcher: %w", err))
		}
		go func() {
			if err := watcher.Watch(ctx, func() error {
				return eng.ReloadFrom(ctx, ruleSource)
			}); err != nil {
				errChan <- fmt.Errorf("catalog watcher: %w", err)
			}
		}()
		defer watcher.Stop()
	}

	if metricsServer != nil {
		go func() {
			slog.Info("starting metrics server",
				"address", cfg.Telemetry.Metrics.ListenAddress,
				"path", cfg.Telemetry.Metrics.Path,
			)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	fmt.Println()
	fmt.Printf("✓ Governance engine running (%d rules)\n", set.Len())
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
		fmt.Printf("✓ Health endpoints: http://%s/health/live /health/ready\n", cfg.Telemetry.Metrics.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or component error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if metricsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Service stopped")
		return nil
	}
}

// recorderOrNil avoids storing a typed nil in the engine's Recorder
// interface when metrics are disabled.
func recorderOrNil(c *metrics.Collector) engine.Recorder {
	if c == nil {
		return nil
	}
	return c
}

func printBanner(cfg *config.Config, ruleCount int) {
	fmt.Printf("Warden v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("✓ Rule catalog loaded (%d rules)\n", ruleCount)

	slog.Debug("rule catalog", "path", cfg.Rules.Path, "watch", cfg.Rules.Watch)
	slog.Debug("audit backend", "backend", cfg.Audit.Backend)
}
