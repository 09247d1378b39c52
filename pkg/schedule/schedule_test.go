package schedule

import (
	"testing"
)

func TestJobLifecycle(t *testing.T) {
	j := New("test.job", "* * * * *", func() {})

	if j.Running() {
		t.Error("job running before Start")
	}
	if j.NextRun() != nil {
		t.Error("NextRun should be nil before Start")
	}

	if err := j.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !j.Running() {
		t.Error("job not running after Start")
	}
	if next := j.NextRun(); next == nil || next.IsZero() {
		t.Error("NextRun should be set after Start")
	}

	// Idempotent restarts and stops.
	if err := j.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	j.Stop()
	j.Stop()
	if j.Running() {
		t.Error("job still running after Stop")
	}

	if err := j.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer j.Stop()
	if !j.Running() {
		t.Error("job should run again after restart")
	}
}

func TestJobInvalidSpec(t *testing.T) {
	j := New("test.job", "not a schedule", func() {})

	if err := j.Start(); err == nil {
		t.Error("Start should reject an unparseable expression")
	}
	if j.Running() {
		t.Error("job must not run with an invalid expression")
	}
}
