package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period applied when the config does
// not set one. Editors write catalogs in several syscalls; one reload per
// burst is enough.
const DefaultDebounceInterval = 100 * time.Millisecond

// WatcherConfig configures a catalog Watcher. Zero fields take defaults.
type WatcherConfig struct {
	// Path is the catalog file or directory to watch. Required.
	Path string

	// DebounceInterval is how long the path must stay quiet after a
	// change before a reload fires.
	DebounceInterval time.Duration

	// Extensions lists the file extensions that count as catalog files.
	// Default: .yaml and .yml.
	Extensions []string

	// SkipHidden ignores dotfiles and skips dot-directories when
	// walking. Editor swap files live there.
	SkipHidden bool
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: DefaultDebounceInterval,
		Extensions:       []string{".yaml", ".yml"},
		SkipHidden:       true,
	}
}

// Watcher triggers catalog reloads when files under a path change.
//
// Change bursts are absorbed inside the event loop: each relevant
// filesystem event re-arms a quiet-period timer, and the reload callback
// runs only once the timer expires with no further events. One reload per
// burst, no goroutine per event.
type Watcher struct {
	fsw    *fsnotify.Watcher
	config *WatcherConfig
	logger *slog.Logger

	mu      sync.Mutex
	running bool

	stop chan struct{}
	done chan struct{}
}

// NewWatcher creates a catalog watcher. A nil config takes all defaults;
// a partial config takes defaults field-wise.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".yaml", ".yml"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:    fsw,
		config: config,
		logger: logger.With("component", "source.watcher"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Watch blocks, invoking onReload after each debounced catalog change,
// until the context is cancelled or Stop is called. Reload and watch
// errors are logged and watching continues; only a broken watcher ends
// the loop with an error.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.done)
	}()

	if err := w.register(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.logger.Info("catalog watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	// quiet is armed on the first relevant event of a burst and re-armed
	// on every subsequent one; the reload fires when it expires.
	quiet := time.NewTimer(w.config.DebounceInterval)
	if !quiet.Stop() {
		<-quiet.C
	}
	defer quiet.Stop()

	armed := false
	var last fsnotify.Event

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopped (context cancelled)")
			return nil

		case <-w.stop:
			w.logger.Info("catalog watcher stopped")
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(ev) {
				continue
			}

			w.logger.Debug("catalog file event",
				"path", ev.Name,
				"op", ev.Op.String(),
			)

			if armed && !quiet.Stop() {
				<-quiet.C
			}
			quiet.Reset(w.config.DebounceInterval)
			armed = true
			last = ev

		case <-quiet.C:
			armed = false
			w.logger.Info("reloading rule catalog",
				"path", last.Name,
				"op", last.Op.String(),
			)
			if err := onReload(); err != nil {
				w.logger.Error("rule catalog reload failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("catalog watcher error", "error", err)
		}
	}
}

// Stop ends a running Watch call, waits for it to return, and releases
// the underlying filesystem watcher. No-op if Watch is not running.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if !running {
		return nil
	}

	close(w.stop)
	<-w.done

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// register points the filesystem watcher at the configured path. A
// directory is walked so nested catalog directories are covered too;
// fsnotify reports file events for watched directories on its own.
func (w *Watcher) register(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.config.SkipHidden && path != root && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// relevant reports whether an event should count toward a reload:
// a non-chmod-only change to a file with a catalog extension.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&^fsnotify.Chmod == 0 {
		return false
	}

	base := filepath.Base(ev.Name)
	if w.config.SkipHidden && strings.HasPrefix(base, ".") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
