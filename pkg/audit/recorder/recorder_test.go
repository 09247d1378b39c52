package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/audit/storage"
	"warden-hq/warden/pkg/telemetry/logging"
)

// blockingStore lets tests hold writes open to fill the async buffer.
type blockingStore struct {
	mu      sync.Mutex
	events  []*audit.Event
	release chan struct{}
	failAll bool
}

func (s *blockingStore) Store(ctx context.Context, event *audit.Event) error {
	if s.release != nil {
		<-s.release
	}
	if s.failAll {
		return errors.New("backend down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *blockingStore) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	return nil, nil
}

func (s *blockingStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), nil
}

func (s *blockingStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (s *blockingStore) Close() error { return nil }

func (s *blockingStore) stored() []*audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestRecorderPersistsEvents(t *testing.T) {
	store := storage.NewMemoryStore(100)
	r := NewRecorder(store, nil)

	r.Log(&audit.Event{
		Type:    audit.EventActionEvaluated,
		Action:  "deploy_service",
		Outcome: audit.OutcomeSuccess,
	})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("stored %d events, want 1", count)
	}

	events, err := store.Query(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if events[0].ID == "" {
		t.Error("recorder should assign an event id")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("recorder should assign a timestamp")
	}
}

func TestRecorderPreservesPresetID(t *testing.T) {
	store := storage.NewMemoryStore(100)
	r := NewRecorder(store, nil)

	r.Log(&audit.Event{
		ID:      "preset-id",
		Type:    audit.EventRuleTriggered,
		Action:  "deploy_service",
		Outcome: audit.OutcomeSuccess,
	})
	r.Close()

	events, _ := store.Query(context.Background(), &audit.Query{})
	if len(events) != 1 || events[0].ID != "preset-id" {
		t.Fatalf("preset id not preserved: %+v", events)
	}
}

func TestRecorderNilEventIgnored(t *testing.T) {
	store := storage.NewMemoryStore(10)
	r := NewRecorder(store, nil)
	r.Log(nil)
	r.Close()

	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Errorf("nil event stored, count = %d", count)
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	r := NewRecorder(store, &Config{AsyncBuffer: 2, WriteTimeout: time.Second})

	// One event blocks in the worker, two fill the buffer; the rest drop.
	for i := 0; i < 10; i++ {
		r.Log(&audit.Event{Type: audit.EventActionEvaluated, Action: "a", Outcome: audit.OutcomeSuccess})
	}

	close(store.release)
	r.Close()

	if got := len(store.stored()); got > 3 {
		t.Errorf("expected at most 3 events stored, got %d", got)
	}
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	store := &blockingStore{failAll: true}
	r := NewRecorder(store, nil)

	r.Log(&audit.Event{Type: audit.EventActionEvaluated, Action: "a", Outcome: audit.OutcomeSuccess})
	r.Log(&audit.Event{Type: audit.EventActionDenied, Action: "b", Outcome: audit.OutcomeFailure})

	// Close must still drain and return.
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRecorderCloseIdempotent(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStore(10), nil)
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRecorderScrubsDetails(t *testing.T) {
	store := storage.NewMemoryStore(10)
	redactor := logging.NewRedactor(nil)
	r := NewRecorder(store, &Config{
		AsyncBuffer:  10,
		WriteTimeout: time.Second,
		Scrub:        redactor.ScrubMap,
	})

	r.Log(&audit.Event{
		Type:    audit.EventActionEvaluated,
		Action:  "call_api",
		Outcome: audit.OutcomeSuccess,
		Details: map[string]interface{}{
			"api_key":  "sk-supersecret",
			"endpoint": "https://api.example.com",
		},
		Metadata: map[string]interface{}{
			"token": "tok_abcdef123",
		},
	})
	r.Close()

	events, _ := store.Query(context.Background(), &audit.Query{})
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}

	if events[0].Details["api_key"] == "sk-supersecret" {
		t.Error("sensitive detail not scrubbed")
	}
	if events[0].Details["endpoint"] != "https://api.example.com" {
		t.Errorf("plain detail changed: %v", events[0].Details["endpoint"])
	}
	if events[0].Metadata["token"] == "tok_abcdef123" {
		t.Error("sensitive metadata not scrubbed")
	}
}
