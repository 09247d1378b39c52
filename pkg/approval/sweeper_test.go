package approval

import (
	"testing"
)

func TestSweeperStartStop(t *testing.T) {
	s := NewSweeper(NewManager(nil), "")

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if next := s.NextRun(); next == nil || next.IsZero() {
		t.Error("NextRun should report a scheduled sweep after Start")
	}

	// Second start is a no-op
	if err := s.Start(); err != nil {
		t.Errorf("second Start: %v", err)
	}

	s.Stop()
	s.Stop() // idempotent
}

func TestSweeperDefaultSchedule(t *testing.T) {
	s := NewSweeper(NewManager(nil), "")
	if got := s.job.Spec(); got != DefaultSweepSchedule {
		t.Errorf("schedule = %q, want %q", got, DefaultSweepSchedule)
	}
}

func TestSweeperInvalidSchedule(t *testing.T) {
	s := NewSweeper(NewManager(nil), "not a cron expression")
	if err := s.Start(); err == nil {
		t.Error("Start with invalid schedule should return error")
	}
	if s.NextRun() != nil {
		t.Error("NextRun should be nil when nothing was scheduled")
	}
}
