package audit

import (
	"context"
	"sync"
)

// DefaultRingCapacity bounds the dev-mode store. Kafka is the durable sink
// in production; the ring exists for local inspection and tests.
const DefaultRingCapacity = 4096

// MemoryStore is a bounded in-memory event log. When full it evicts the
// oldest event.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == s.capacity {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if filter.DocumentID != "" && event.DocumentID.String() != filter.DocumentID {
			continue
		}
		if filter.Action != "" && event.Action != filter.Action {
			continue
		}
		matched = append(matched, event)
		if filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	return matched, nil
}

// Clear drops all events. Test helper.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
