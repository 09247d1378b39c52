package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"warden-hq/warden/pkg/audit"
)

func newTempSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, dbPath
}

func sqliteEvent(id, correlationID string, eventType audit.EventType, ts time.Time) *audit.Event {
	return &audit.Event{
		ID:            id,
		Type:          eventType,
		Timestamp:     ts,
		Action:        "deploy_service",
		Outcome:       audit.OutcomeSuccess,
		AgentID:       "deploy-bot",
		RiskLevel:     audit.RiskMedium,
		CorrelationID: correlationID,
		Details:       map[string]interface{}{"environment": "production"},
	}
}

func TestSQLiteStoreInitialize(t *testing.T) {
	_, dbPath := newTempSQLiteStore(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, _ := newTempSQLiteStore(t)
	ctx := context.Background()

	want := sqliteEvent("ev-1", "corr-1", audit.EventActionEvaluated, time.Now().UTC().Truncate(time.Second))
	want.ParentEventID = "ev-0"
	want.Metadata = map[string]interface{}{"source": "test"}

	if err := store.Store(ctx, want); err != nil {
		t.Fatalf("Store: %v", err)
	}

	events, err := store.Query(ctx, &audit.Query{CorrelationID: "corr-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	got := events[0]
	if got.ID != want.ID || got.Type != want.Type || got.Action != want.Action {
		t.Errorf("event identity mismatch: %+v", got)
	}
	if got.AgentID != "deploy-bot" || got.RiskLevel != audit.RiskMedium {
		t.Errorf("event attributes mismatch: %+v", got)
	}
	if got.ParentEventID != "ev-0" {
		t.Errorf("ParentEventID = %q, want \"ev-0\"", got.ParentEventID)
	}
	if got.Details["environment"] != "production" {
		t.Errorf("Details = %v", got.Details)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestSQLiteStoreQueryFilters(t *testing.T) {
	store, _ := newTempSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	seed := []*audit.Event{
		sqliteEvent("ev-1", "corr-a", audit.EventActionEvaluated, base.Add(-3*time.Hour)),
		sqliteEvent("ev-2", "corr-a", audit.EventRuleTriggered, base.Add(-2*time.Hour)),
		sqliteEvent("ev-3", "corr-b", audit.EventActionEvaluated, base.Add(-time.Hour)),
	}
	seed[2].AgentID = "other-bot"
	for _, ev := range seed {
		if err := store.Store(ctx, ev); err != nil {
			t.Fatalf("Store(%s): %v", ev.ID, err)
		}
	}

	tests := []struct {
		name    string
		query   *audit.Query
		wantIDs []string
	}{
		{
			name:    "by correlation id newest first",
			query:   &audit.Query{CorrelationID: "corr-a"},
			wantIDs: []string{"ev-2", "ev-1"},
		},
		{
			name:    "by agent id",
			query:   &audit.Query{AgentID: "other-bot"},
			wantIDs: []string{"ev-3"},
		},
		{
			name:    "by event type",
			query:   &audit.Query{Types: []audit.EventType{audit.EventRuleTriggered}},
			wantIDs: []string{"ev-2"},
		},
		{
			name:    "since cutoff",
			query:   &audit.Query{Since: base.Add(-90 * time.Minute)},
			wantIDs: []string{"ev-3"},
		},
		{
			name:    "limit",
			query:   &audit.Query{Limit: 2},
			wantIDs: []string{"ev-3", "ev-2"},
		},
		{
			name:    "nil query returns everything",
			query:   nil,
			wantIDs: []string{"ev-3", "ev-2", "ev-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(events) != len(tt.wantIDs) {
				t.Fatalf("got %d events, want %d", len(events), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if events[i].ID != id {
					t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
				}
			}
		})
	}
}

func TestSQLiteStoreCountAndDeleteBefore(t *testing.T) {
	store, _ := newTempSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, ts := range []time.Time{base.Add(-48 * time.Hour), base.Add(-24 * time.Hour), base} {
		ev := sqliteEvent("ev-"+string(rune('a'+i)), "corr", audit.EventActionEvaluated, ts)
		if err := store.Store(ctx, ev); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	if count, err := store.Count(ctx); err != nil || count != 3 {
		t.Fatalf("Count = %d, %v; want 3, nil", count, err)
	}

	deleted, err := store.DeleteBefore(ctx, base.Add(-12*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteBefore deleted %d, want 2", deleted)
	}

	if count, err := store.Count(ctx); err != nil || count != 1 {
		t.Errorf("Count after delete = %d, %v; want 1, nil", count, err)
	}
}

func TestSQLiteStoreClosedErrors(t *testing.T) {
	store, _ := newTempSQLiteStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx := context.Background()
	if err := store.Store(ctx, sqliteEvent("ev-late", "corr", audit.EventActionEvaluated, time.Now())); err == nil {
		t.Error("Store after Close should return error")
	}
	if _, err := store.Count(ctx); err == nil {
		t.Error("Count after Close should return error")
	}
}
