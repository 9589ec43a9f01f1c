package registry

import (
	"context"
	"sync"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	assignments map[id.DocumentID]Assignment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{assignments: make(map[id.DocumentID]Assignment)}
}

func (s *InMemoryStore) Create(_ context.Context, assignment Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assignments[assignment.DocumentID]; exists {
		return sentinel.ErrConflict
	}
	s.assignments[assignment.DocumentID] = assignment
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, doc id.DocumentID) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignment, ok := s.assignments[doc]
	if !ok {
		return Assignment{}, sentinel.ErrNotFound
	}
	return assignment, nil
}
