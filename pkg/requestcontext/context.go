// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services and workers import it without pulling in
// transport code.
//
// Usage in services (read values):
//
//	caller := requestcontext.Party(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithParty(ctx, partyID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "scrip/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	partyIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyParty       = partyIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Party retrieves the authenticated caller from the context.
// Returns the zero value (nil UUID) if no caller was authenticated.
func Party(ctx context.Context) id.PartyID {
	if p, ok := ctx.Value(ContextKeyParty).(id.PartyID); ok {
		return p
	}
	return id.PartyID{}
}

// WithParty injects the authenticated caller into the context.
func WithParty(ctx context.Context, party id.PartyID) context.Context {
	return context.WithValue(ctx, ContextKeyParty, party)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests that don't care).
//
// Every read of "now" within one request sees the same instant, so an
// attestation expiring mid-request cannot flip a decision partway through.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
