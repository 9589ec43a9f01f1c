package credential

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	credentialmetrics "scrip/internal/credential/metrics"
	"scrip/pkg/platform/circuit"
)

// probeInterval is how often an open circuit still lets a call through so
// the downstream can prove it recovered.
const probeInterval = 10

// BestEffort is the policy wrapper around an Issuer: bounded timeout, a
// circuit breaker, structured logging of failures, and an Issue that never
// returns an error. The claim has already committed when Issue runs; nothing
// here may undo or delay it.
type BestEffort struct {
	issuer  Issuer
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
	metrics *credentialmetrics.Metrics
	calls   atomic.Uint64
}

type BestEffortOption func(*BestEffort)

func WithLogger(logger *slog.Logger) BestEffortOption {
	return func(b *BestEffort) {
		b.logger = logger
	}
}

func WithMetrics(m *credentialmetrics.Metrics) BestEffortOption {
	return func(b *BestEffort) {
		b.metrics = m
	}
}

func WithBreaker(breaker *circuit.Breaker) BestEffortOption {
	return func(b *BestEffort) {
		b.breaker = breaker
	}
}

// NewBestEffort wraps an issuer. A nil issuer disables the side effect;
// Issue simply returns.
func NewBestEffort(issuer Issuer, timeout time.Duration, opts ...BestEffortOption) *BestEffort {
	b := &BestEffort{
		issuer:  issuer,
		breaker: circuit.New("credential"),
		timeout: timeout,
		logger:  slog.Default(),
	}
	if b.timeout <= 0 {
		b.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Issue fires the side effect. The context's cancellation is detached: the
// claim's request may already be finishing, and an aborted request must not
// cancel an issuance that is underway.
func (b *BestEffort) Issue(ctx context.Context, event ClaimEvent) {
	if b.issuer == nil {
		return
	}

	if b.breaker.IsOpen() {
		// Skip while open, but let every probeInterval-th call through so
		// the breaker can close again once the downstream recovers.
		if b.calls.Add(1)%probeInterval != 0 {
			b.metrics.IncrementSkipped()
			return
		}
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	if err := b.issuer.IssueClaimCredential(callCtx, event); err != nil {
		_, change := b.breaker.RecordFailure()
		if change.Opened {
			b.metrics.RecordBreakerTransition("opened")
			b.logger.WarnContext(ctx, "credential circuit opened",
				slog.String("document_id", event.DocumentID.String()),
			)
		}
		b.metrics.IncrementFailed()
		b.logger.WarnContext(ctx, "claim credential issuance failed",
			slog.String("document_id", event.DocumentID.String()),
			slog.String("token_id", event.TokenID.String()),
			slog.String("owner", event.Owner.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	_, change := b.breaker.RecordSuccess()
	if change.Closed {
		b.metrics.RecordBreakerTransition("closed")
	}
	b.metrics.IncrementIssued()
}
