// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/umeed-health/umeed/internal/triage"
)

// Store holds visit records in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	visits map[string]*triage.VisitRecord // visit ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		visits: make(map[string]*triage.VisitRecord),
	}
}

// Insert stores a copy of the visit. IDs must be unique.
func (s *Store) Insert(_ context.Context, v *triage.VisitRecord) (*triage.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.visits[v.ID]; exists {
		return nil, fmt.Errorf("visit %s already exists", v.ID)
	}
	cp := *v
	s.visits[v.ID] = &cp
	return &triage.Ack{Rows: []triage.VisitRecord{cp}}, nil
}

// Get retrieves a visit by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.VisitRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[id]
	if !ok {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

// Len reports how many visits are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visits)
}
