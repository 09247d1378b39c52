package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"warden-hq/warden/pkg/schedule"
)

// Scheduler prunes the audit store on the cron expression from the
// pruner's retention config. An empty expression disables scheduling;
// Start then does nothing and IsRunning stays false.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu  sync.Mutex
	job *schedule.Job
}

// NewScheduler creates a retention scheduler for the pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start arms scheduled pruning and ties it to ctx: cancelling the
// context stops the schedule. Returns an error for an unparseable
// cron expression.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.logger.Info("no prune schedule set, scheduled pruning disabled")
		return nil
	}

	if s.job == nil {
		s.job = schedule.New("audit.retention", spec, func() {
			s.prune(ctx)
		})
	}
	if err := s.job.Start(); err != nil {
		return err
	}

	s.logger.Info("scheduled pruning armed",
		"schedule", spec,
		"retention_days", s.pruner.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// prune runs one pruning cycle.
func (s *Scheduler) prune(ctx context.Context) {
	switch deleted, err := s.pruner.Prune(ctx); {
	case err != nil:
		s.logger.Error("scheduled pruning failed", "error", err)
	case deleted > 0:
		s.logger.Info("pruning cycle completed", "deleted_count", deleted)
	default:
		s.logger.Debug("pruning cycle completed, nothing to delete")
	}
}

// Stop halts scheduled pruning and waits for an in-flight cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()

	if job != nil {
		job.Stop()
	}
}

// IsRunning reports whether scheduled pruning is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.job != nil && s.job.Running()
}

// NextRun returns the next scheduled pruning time, or nil when
// scheduling is disabled or not started.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil {
		return nil
	}
	return s.job.NextRun()
}
