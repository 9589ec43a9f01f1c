// Package verifier enforces capability checks on document-bound attestations.
// A check walks a fixed chain of conditions; each condition has its own
// failure code so callers and auditors can tell exactly why access fell
// through.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scrip/internal/attestation"
	"scrip/internal/audit"
	"scrip/internal/capability"
	"scrip/internal/registry"
	verifiermetrics "scrip/internal/verifier/metrics"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

const tracerName = "scrip/internal/verifier"

// IssuerSource resolves a document's registered issuer. The registry service
// satisfies this.
type IssuerSource interface {
	AssignmentOf(ctx context.Context, doc id.DocumentID) (registry.Assignment, error)
}

// SchemaSource exposes the schema id attestations must currently carry. The
// admin module satisfies this.
type SchemaSource interface {
	CurrentSchema(ctx context.Context) (id.SchemaID, error)
}

// AuditPublisher captures verification audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Decision is the outcome of a pure capability check.
type Decision struct {
	Granted      bool
	Denial       dErrors.Code
	Capabilities capability.Mask
	Payload      *attestation.Payload
}

// Service runs the capability check chain.
type Service struct {
	gateway        attestation.Gateway
	issuers        IssuerSource
	schema         SchemaSource
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *verifiermetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *verifiermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(gateway attestation.Gateway, issuers IssuerSource, schema SchemaSource, opts ...Option) *Service {
	s := &Service{
		gateway: gateway,
		issuers: issuers,
		schema:  schema,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify is the enforcing entry point: it runs the check chain, audits the
// outcome, and returns the full granted mask. On denial the returned error
// carries the failure code.
func (s *Service) Verify(ctx context.Context, caller id.PartyID, doc id.DocumentID, required capability.Mask, attID id.AttestationID) (capability.Mask, error) {
	decision, err := s.Check(ctx, caller, doc, required, attID)
	if err != nil {
		s.logger.ErrorContext(ctx, "capability check could not run",
			slog.String("document_id", doc.String()),
			slog.String("attestation_id", attID.String()),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	if !decision.Granted {
		s.emit(ctx, audit.Event{
			Category:      audit.CategorySecurity,
			Action:        audit.ActionCapabilityDenied,
			Actor:         caller,
			DocumentID:    doc,
			AttestationID: attID,
			Capabilities:  required,
			Detail:        string(decision.Denial),
			RequestID:     requestcontext.RequestID(ctx),
		})
		return 0, dErrors.New(decision.Denial, denialMessage(decision.Denial))
	}

	s.emit(ctx, audit.Event{
		Action:        audit.ActionCapabilityVerified,
		Actor:         caller,
		DocumentID:    doc,
		AttestationID: attID,
		Capabilities:  decision.Capabilities,
		RequestID:     requestcontext.RequestID(ctx),
	})
	return decision.Capabilities, nil
}

// Check is the pure form of Verify: same chain, no audit, no mutation.
// A clean denial comes back as a Decision with Granted false; the error
// return is reserved for infrastructure failure.
func (s *Service) Check(ctx context.Context, caller id.PartyID, doc id.DocumentID, required capability.Mask, attID id.AttestationID) (Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verifier.Check", trace.WithAttributes(
		attribute.String("document_id", doc.String()),
		attribute.String("attestation_id", attID.String()),
		attribute.String("required", required.String()),
	))
	defer span.End()

	decision, err := s.runChain(ctx, caller, doc, required, attID)

	s.metrics.ObserveCheckLatency(time.Since(start))
	switch {
	case err != nil:
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.IncrementCheck("error")
	case !decision.Granted:
		span.SetAttributes(attribute.String("denial", string(decision.Denial)))
		s.metrics.IncrementCheck("denied")
		s.metrics.IncrementDenial(string(decision.Denial))
	default:
		span.SetStatus(otelcodes.Ok, "")
		s.metrics.IncrementCheck("granted")
	}

	return decision, err
}

func (s *Service) runChain(ctx context.Context, caller id.PartyID, doc id.DocumentID, required capability.Mask, attID id.AttestationID) (Decision, error) {
	// 1. The attestation exists.
	lookupStart := time.Now()
	att, err := s.gateway.Lookup(ctx, attID)
	s.metrics.ObserveLookupLatency(time.Since(lookupStart))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return denied(dErrors.CodeAttestationNotFound), nil
		}
		return Decision{}, dErrors.Wrap(err, dErrors.CodeAttestationUnavailable, "attestation service unavailable")
	}

	// 2. It has not been revoked.
	if att.Revoked() {
		return denied(dErrors.CodeAttestationRevoked), nil
	}

	// 3. It has not expired. Expiring exactly now still passes.
	if att.Expired(requestcontext.Now(ctx)) {
		return denied(dErrors.CodeAttestationExpired), nil
	}

	// 4. It carries the current capability schema.
	schema, err := s.schema.CurrentSchema(ctx)
	if err != nil {
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "schema source failed")
	}
	if att.SchemaID != schema {
		return denied(dErrors.CodeSchemaMismatch), nil
	}

	// 5. It was issued to the caller.
	if att.Recipient != caller {
		return denied(dErrors.CodeRecipientMismatch), nil
	}

	// 6. Its issuer is the document's registered issuer.
	assignment, err := s.issuers.AssignmentOf(ctx, doc)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIssuerNotRegistered) {
			return denied(dErrors.CodeIssuerNotRegistered), nil
		}
		return Decision{}, err
	}
	if att.Issuer != assignment.Issuer {
		return denied(dErrors.CodeIssuerMismatch), nil
	}

	// 7. Its payload decodes and binds this document.
	payload, err := attestation.DecodePayload(att.Payload)
	if err != nil {
		return denied(dErrors.CodePayloadMalformed), nil
	}
	if payload.DocumentID != doc {
		return denied(dErrors.CodeDocumentMismatch), nil
	}

	// 8. Its capabilities cover the required mask.
	if !payload.Capabilities.Has(required) {
		return denied(dErrors.CodeInsufficientCapability), nil
	}

	return Decision{
		Granted:      true,
		Capabilities: payload.Capabilities,
		Payload:      &payload,
	}, nil
}

func denied(code dErrors.Code) Decision {
	return Decision{Denial: code}
}

func denialMessage(code dErrors.Code) string {
	switch code {
	case dErrors.CodeAttestationNotFound:
		return "attestation does not exist"
	case dErrors.CodeAttestationRevoked:
		return "attestation has been revoked"
	case dErrors.CodeAttestationExpired:
		return "attestation has expired"
	case dErrors.CodeSchemaMismatch:
		return "attestation schema does not match the current schema"
	case dErrors.CodeRecipientMismatch:
		return "attestation was not issued to the caller"
	case dErrors.CodeIssuerNotRegistered:
		return "document has no registered issuer"
	case dErrors.CodeIssuerMismatch:
		return "attestation issuer is not the document's registered issuer"
	case dErrors.CodePayloadMalformed:
		return "attestation payload cannot be decoded"
	case dErrors.CodeDocumentMismatch:
		return "attestation payload does not bind this document"
	case dErrors.CodeInsufficientCapability:
		return "attestation does not grant the required capabilities"
	default:
		return "capability check failed"
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
	}
}
