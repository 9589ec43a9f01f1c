package registry

import (
	"context"
	"errors"
	"log/slog"

	"scrip/internal/audit"
	registrymetrics "scrip/internal/registry/metrics"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

// AuditPublisher captures registry audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Guard is the pause gate. The admin service satisfies this.
type Guard interface {
	Ensure(ctx context.Context) error
}

// Service owns assignment writes and lookups.
type Service struct {
	store          Store
	guard          Guard
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *registrymetrics.Metrics
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

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, guard Guard, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetIssuer registers the issuer and resolver variant for a document,
// exactly once. The transport layer gates this behind the executor token.
func (s *Service) SetIssuer(ctx context.Context, doc id.DocumentID, issuer id.PartyID, variant id.Variant) (Assignment, error) {
	if err := s.guard.Ensure(ctx); err != nil {
		return Assignment{}, err
	}
	if doc.IsNil() {
		return Assignment{}, dErrors.New(dErrors.CodeInvalidInput, "document id is required")
	}
	if issuer.IsNil() {
		return Assignment{}, dErrors.New(dErrors.CodeInvalidInput, "issuer is required")
	}
	if !variant.IsValid() {
		return Assignment{}, dErrors.New(dErrors.CodeInvalidInput, "unknown variant: "+string(variant))
	}

	assignment := Assignment{
		DocumentID: doc,
		Issuer:     issuer,
		Variant:    variant,
		CreatedAt:  requestcontext.Now(ctx),
	}

	if err := s.store.Create(ctx, assignment); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Assignment{}, dErrors.New(dErrors.CodeIssuerAlreadyRegistered, "document already has a registered issuer")
		}
		return Assignment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register issuer")
	}

	s.metrics.IncrementAssignmentCreated()
	s.emit(ctx, audit.Event{
		Action:     audit.ActionIssuerRegistered,
		Actor:      requestcontext.Party(ctx),
		DocumentID: doc,
		Detail:     "issuer " + issuer.String() + " variant " + string(variant),
		RequestID:  requestcontext.RequestID(ctx),
	})

	return assignment, nil
}

// IssuerOf returns the registered issuer for a document.
func (s *Service) IssuerOf(ctx context.Context, doc id.DocumentID) (id.PartyID, error) {
	assignment, err := s.AssignmentOf(ctx, doc)
	if err != nil {
		return id.PartyID{}, err
	}
	return assignment.Issuer, nil
}

// AssignmentOf returns the full assignment for a document.
func (s *Service) AssignmentOf(ctx context.Context, doc id.DocumentID) (Assignment, error) {
	if doc.IsNil() {
		return Assignment{}, dErrors.New(dErrors.CodeInvalidInput, "document id is required")
	}

	assignment, err := s.store.Find(ctx, doc)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Assignment{}, dErrors.New(dErrors.CodeIssuerNotRegistered, "document has no registered issuer")
		}
		return Assignment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up assignment")
	}
	return assignment, nil
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
