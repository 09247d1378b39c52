package storage

import (
	"context"
	"sync"
	"time"

	"warden-hq/warden/pkg/audit"
)

// DefaultMaxEvents is the default retention cap for the in-memory store.
const DefaultMaxEvents = 10000

// MemoryStore implements audit.Store with a bounded in-memory trail.
// Once the cap is exceeded, the oldest events are evicted first.
type MemoryStore struct {
	mu        sync.RWMutex
	events    []*audit.Event
	maxEvents int
	closed    bool
}

// NewMemoryStore creates an in-memory store retaining at most maxEvents
// entries. A non-positive cap falls back to DefaultMaxEvents.
func NewMemoryStore(maxEvents int) *MemoryStore {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &MemoryStore{maxEvents: maxEvents}
}

// Store persists one event, evicting the oldest entries beyond the cap.
func (s *MemoryStore) Store(ctx context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.ErrStoreClosed
	}

	// Copy so later caller mutation cannot tear a stored event.
	eventCopy := *event
	s.events = append(s.events, &eventCopy)

	if over := len(s.events) - s.maxEvents; over > 0 {
		s.events = append([]*audit.Event(nil), s.events[over:]...)
	}

	return nil
}

// Query retrieves events matching the query, newest first.
func (s *MemoryStore) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.ErrStoreClosed
	}

	var results []*audit.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if !matchesQuery(event, query) {
			continue
		}
		eventCopy := *event
		results = append(results, &eventCopy)
		if query != nil && query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}

	return results, nil
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, audit.ErrStoreClosed
	}
	return len(s.events), nil
}

// DeleteBefore removes events older than the cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, audit.ErrStoreClosed
	}

	kept := s.events[:0]
	removed := 0
	for _, event := range s.events {
		if event.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept

	return removed, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// matchesQuery reports whether an event satisfies the query filters.
func matchesQuery(event *audit.Event, query *audit.Query) bool {
	if query == nil {
		return true
	}

	if query.CorrelationID != "" && event.CorrelationID != query.CorrelationID {
		return false
	}

	if query.AgentID != "" && event.AgentID != query.AgentID {
		return false
	}

	if !query.Since.IsZero() && event.Timestamp.Before(query.Since) {
		return false
	}

	if len(query.Types) > 0 {
		found := false
		for _, t := range query.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
