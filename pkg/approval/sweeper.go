package approval

import (
	"log/slog"
	"time"

	"warden-hq/warden/pkg/schedule"
)

// DefaultSweepSchedule runs the expiry sweep every five minutes.
const DefaultSweepSchedule = "*/5 * * * *"

// Sweeper runs Manager.CleanupExpired on a cron schedule so pending
// requests past their deadline reach the expired state without waiting
// for a resolve call to notice.
type Sweeper struct {
	job *schedule.Job
}

// NewSweeper creates an expiry sweeper for the manager. An empty schedule
// uses DefaultSweepSchedule.
func NewSweeper(manager *Manager, spec string) *Sweeper {
	if spec == "" {
		spec = DefaultSweepSchedule
	}

	logger := slog.Default().With("component", "approval.sweeper")
	return &Sweeper{
		job: schedule.New("approval.sweeper", spec, func() {
			if n := manager.CleanupExpired(); n > 0 {
				logger.Info("sweep completed", "expired_count", n)
			}
		}),
	}
}

// Start arms scheduled sweeping. Returns an error for an unparseable
// cron expression.
func (s *Sweeper) Start() error {
	return s.job.Start()
}

// Stop halts sweeping and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	s.job.Stop()
}

// NextRun returns the next scheduled sweep time.
func (s *Sweeper) NextRun() *time.Time {
	return s.job.NextRun()
}
