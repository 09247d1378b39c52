// Package schedule runs background maintenance functions on standard
// five-field cron expressions. It carries the lifecycle shared by the
// audit retention scheduler and the approval expiry sweeper: validate
// the expression, arm the timer, and drain an in-flight run on stop.
package schedule

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job runs one function on a cron schedule.
//
// Start and Stop are idempotent; a stopped job can be started again
// without re-registering its function.
type Job struct {
	name string
	spec string
	run  func()

	mu      sync.Mutex
	cron    *cron.Cron
	armed   bool
	running bool

	logger *slog.Logger
}

// New creates a job that runs fn per spec. The name labels log lines.
func New(name, spec string, fn func()) *Job {
	return &Job{
		name:   name,
		spec:   spec,
		run:    fn,
		cron:   cron.New(),
		logger: slog.Default().With("component", name),
	}
}

// Spec returns the job's cron expression.
func (j *Job) Spec() string { return j.spec }

// Start validates the expression and arms the schedule. No-op while
// already running.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return nil
	}

	if _, err := cron.ParseStandard(j.spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", j.spec, err)
	}

	// Register once; restarts reuse the entry.
	if !j.armed {
		if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		j.armed = true
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("schedule armed", "schedule", j.spec)

	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
// No-op while not running.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	<-j.cron.Stop().Done()
	j.running = false
	j.logger.Info("schedule stopped")
}

// Running reports whether the schedule is armed and active.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.running
}

// NextRun returns the next firing time, or nil before Start.
func (j *Job) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
