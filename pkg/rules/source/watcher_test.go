package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevantEvents(t *testing.T) {
	w := &Watcher{config: DefaultWatcherConfig()}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{
			name:  "yaml write",
			event: fsnotify.Event{Name: "/rules/catalog.yaml", Op: fsnotify.Write},
			want:  true,
		},
		{
			name:  "yml create",
			event: fsnotify.Event{Name: "/rules/extra.yml", Op: fsnotify.Create},
			want:  true,
		},
		{
			name:  "chmod only",
			event: fsnotify.Event{Name: "/rules/catalog.yaml", Op: fsnotify.Chmod},
			want:  false,
		},
		{
			name:  "wrong extension",
			event: fsnotify.Event{Name: "/rules/notes.txt", Op: fsnotify.Write},
			want:  false,
		},
		{
			name:  "hidden file",
			event: fsnotify.Event{Name: "/rules/.catalog.yaml.swp.yaml", Op: fsnotify.Write},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestPartialConfigDefaults(t *testing.T) {
	w, err := NewWatcher(&WatcherConfig{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.fsw.Close()

	if w.config.DebounceInterval != DefaultDebounceInterval {
		t.Errorf("DebounceInterval = %v, want default", w.config.DebounceInterval)
	}
	ev := fsnotify.Event{Name: "/rules/catalog.yaml", Op: fsnotify.Write}
	if !w.relevant(ev) {
		t.Error("yaml files should be relevant with defaulted extensions")
	}
}

// startWatcher runs Watch in the background and returns the channel
// Watch's return value lands on.
func startWatcher(t *testing.T, w *Watcher, ctx context.Context, onReload func() error) chan error {
	t.Helper()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Watch(ctx, onReload)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return watchDone
}

func TestWatcherTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: []\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 20 * time.Millisecond,
		SkipHidden:       true,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	watchDone := startWatcher(t, w, ctx, func() error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})

	if err := os.WriteFile(path, []byte("rules:\n  - id: a\n    name: A\n"), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback not invoked after file change")
	}

	cancel()
	select {
	case err := <-watchDone:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after context cancel")
	}
}

func TestWatcherCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: []\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 150 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads int32
	startWatcher(t, w, ctx, func() error {
		atomic.AddInt32(&reloads, 1)
		return nil
	})

	// A burst of writes well inside the quiet period.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("rules: []\n"), 0o644); err != nil {
			t.Fatalf("rewrite catalog: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if got := atomic.LoadInt32(&reloads); got != 1 {
		t.Errorf("reload ran %d times for one burst, want 1", got)
	}
}

func TestWatcherDoubleStart(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(&WatcherConfig{
		Path:             dir,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startWatcher(t, w, ctx, func() error { return nil })

	if err := w.Watch(ctx, func() error { return nil }); err == nil {
		t.Error("second Watch should fail while the first is running")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := NewWatcher(&WatcherConfig{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.fsw.Close()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Watch returned %v, want nil", err)
	}
}
