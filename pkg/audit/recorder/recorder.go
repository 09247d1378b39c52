// Package recorder provides the asynchronous audit sink used on the
// decision path.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden-hq/warden/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing one event to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Scrub, when set, is applied to event details and metadata before the
	// event is enqueued. Wire logging.Redactor.ScrubMap here to keep
	// credentials out of the persisted trail.
	Scrub func(map[string]interface{}) map[string]interface{}
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder is an audit.Sink that enqueues events and drains them to a Store
// on a background worker. Log never blocks on storage: the event is enqueued
// before Log returns, which preserves causal ordering when the store
// serializes writes, and the decision path continues immediately.
type Recorder struct {
	store     audit.Store
	config    *Config
	eventChan chan *audit.Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewRecorder creates a recorder over the given store and starts its worker.
func NewRecorder(store audit.Store, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		store:     store,
		config:    config,
		eventChan: make(chan *audit.Event, config.AsyncBuffer),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Log enqueues an event for async persistence. Missing ids and timestamps
// are filled in. If the buffer is full the event is dropped and logged; a
// governance decision must not stall behind a slow audit backend.
func (r *Recorder) Log(event *audit.Event) {
	if event == nil {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if r.config.Scrub != nil {
		event.Details = r.config.Scrub(event.Details)
		event.Metadata = r.config.Scrub(event.Metadata)
	}

	select {
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
	case r.eventChan <- event:
	default:
		r.logger.Error("audit channel full, dropping event",
			"event_id", event.ID,
			"event_type", event.Type,
			"channel_capacity", r.config.AsyncBuffer,
		)
	}
}

// Close gracefully shuts down the recorder by draining the async channel and
// waiting for all pending writes to complete.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

// worker drains the event channel and writes events to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.eventChan),
			)

			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

// writeEvent writes a single event to storage.
func (r *Recorder) writeEvent(event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.store.Store(ctx, event); err != nil {
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("audit event recorded",
		"event_id", event.ID,
		"event_type", event.Type,
		"correlation_id", event.CorrelationID,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"event_id", event.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
