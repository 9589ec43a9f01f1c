package audit

import (
	"context"
	"time"
)

// Publisher delivers audit events to a sink. Emit is called inside request
// handling, so implementations must be fast or hand off asynchronously.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store is an append-only event sink with a query surface, used by the
// store-backed publisher in dev mode and by tests.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Filter narrows a store query. Zero fields match everything; results come
// back newest first.
type Filter struct {
	DocumentID string
	Action     Action
	Limit      int
}

// StorePublisher writes events straight to a Store.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, normalize(event))
}

// normalize fills the fields emitters commonly leave zero.
func normalize(event Event) Event {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	if event.Category == "" {
		event.Category = CategoryOf(event.Action)
	}
	return event
}
