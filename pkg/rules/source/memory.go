package source

import (
	"context"
	"sync"

	"warden-hq/warden/pkg/rules"
)

// MemorySource serves a rule set held in memory.
// Replace swaps the set atomically, which makes MemorySource useful both for
// tests and for embedding catalogs built in code.
type MemorySource struct {
	mu  sync.RWMutex
	set *rules.Set
}

// NewMemorySource creates a memory source over the given rules.
func NewMemorySource(list []*rules.BusinessRule) (*MemorySource, error) {
	set, err := rules.NewSet(list)
	if err != nil {
		return nil, err
	}
	return &MemorySource{set: set}, nil
}

// Load returns the current rule set.
func (s *MemorySource) Load(ctx context.Context) (*rules.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set, nil
}

// Replace swaps in a new rule list.
func (s *MemorySource) Replace(list []*rules.BusinessRule) error {
	set, err := rules.NewSet(list)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	return nil
}
