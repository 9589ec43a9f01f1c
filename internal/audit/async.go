package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// DefaultAsyncBuffer is the inbox size for the async publisher.
const DefaultAsyncBuffer = 1024

// Async decouples emitters from the sink through a bounded channel. Emit
// never blocks: when the inbox is full the oldest buffered event is dropped
// and counted. The audit trail is observability, not ledger state, so a slow
// sink must never stall an operation.
type Async struct {
	sink    Publisher
	inbox   chan Event
	dropped atomic.Uint64
	logger  *slog.Logger
}

func NewAsync(sink Publisher, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	return &Async{
		sink:   sink,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (a *Async) Emit(_ context.Context, event Event) error {
	event = normalize(event)

	select {
	case a.inbox <- event:
		return nil
	default:
	}

	// Inbox full: evict the oldest and retry once.
	select {
	case <-a.inbox:
		a.dropped.Add(1)
	default:
	}

	select {
	case a.inbox <- event:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many events were evicted under pressure.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Run consumes the inbox and forwards to the sink until the context ends,
// then drains whatever is already buffered. Sink failures are logged and
// skipped; the worker stays up.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return ctx.Err()
		case event := <-a.inbox:
			a.forward(ctx, event)
		}
	}
}

func (a *Async) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-a.inbox:
			a.forward(ctx, event)
		default:
			return
		}
	}
}

func (a *Async) forward(ctx context.Context, event Event) {
	if err := a.sink.Emit(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "audit sink rejected event",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
	}
}
