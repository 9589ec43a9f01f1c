package admin

import (
	"context"
	"sync"

	"scrip/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	state    State
	seeded   bool
	upgrades map[string]Upgrade
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{upgrades: make(map[string]Upgrade)}
}

func (s *InMemoryStore) Load(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.seeded {
		return State{}, sentinel.ErrNotFound
	}
	return s.state, nil
}

func (s *InMemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.seeded = true
	return nil
}

func (s *InMemoryStore) RecordUpgrade(_ context.Context, upgrade Upgrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.upgrades[upgrade.Version]; exists {
		return sentinel.ErrConflict
	}
	s.upgrades[upgrade.Version] = upgrade
	return nil
}
