package admin

import (
	"context"
	"errors"
	"log/slog"

	"scrip/internal/audit"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

// AuditPublisher captures governance audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs governance operations and answers the two questions the rest
// of the ledger asks it: "are we paused?" (Ensure) and "what is the current
// schema?" (CurrentSchema).
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

// NewService loads or initializes the governance state. A fresh store is
// seeded unpaused with the given schema.
func NewService(ctx context.Context, store Store, schema id.SchemaID, opts ...Option) (*Service, error) {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if schema.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "initial schema id is required")
	}

	_, err := store.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		err = store.Save(ctx, State{SchemaID: schema, UpdatedAt: requestcontext.Now(ctx)})
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize governance state")
	}
	return s, nil
}

// Ensure is the pause gate. Every mutating lifecycle, value and registry
// operation calls it before touching state; administration itself does not.
func (s *Service) Ensure(ctx context.Context) error {
	state, err := s.load(ctx)
	if err != nil {
		return err
	}
	if state.Paused {
		return dErrors.New(dErrors.CodeLedgerPaused, "ledger is paused")
	}
	return nil
}

// CurrentSchema is the verifier's schema source.
func (s *Service) CurrentSchema(ctx context.Context) (id.SchemaID, error) {
	state, err := s.load(ctx)
	if err != nil {
		return id.SchemaID{}, err
	}
	return state.SchemaID, nil
}

// Paused reports the pause flag for the readiness surface.
func (s *Service) Paused(ctx context.Context) (bool, error) {
	state, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return state.Paused, nil
}

// Pause blocks all mutating ledger operations. Pausing an already-paused
// ledger is a no-op that still audits: an operator pressing the button twice
// wants both presses on record.
func (s *Service) Pause(ctx context.Context) error {
	return s.setPaused(ctx, true, audit.ActionLedgerPaused)
}

// Unpause re-enables mutating operations.
func (s *Service) Unpause(ctx context.Context) error {
	return s.setPaused(ctx, false, audit.ActionLedgerUnpaused)
}

func (s *Service) setPaused(ctx context.Context, paused bool, action audit.Action) error {
	state, err := s.load(ctx)
	if err != nil {
		return err
	}

	if state.Paused != paused {
		state.Paused = paused
		state.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Save(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update governance state")
		}
	}

	s.logger.InfoContext(ctx, "ledger pause state set",
		slog.Bool("paused", paused),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)
	s.emit(ctx, audit.Event{
		Action:    action,
		Actor:     requestcontext.Party(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// SetSchema swaps the capability schema. Attestations issued under the old
// schema fail the verifier's schema check from this point on.
func (s *Service) SetSchema(ctx context.Context, schema id.SchemaID) error {
	if schema.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "schema id is required")
	}

	state, err := s.load(ctx)
	if err != nil {
		return err
	}

	previous := state.SchemaID
	state.SchemaID = schema
	state.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, state); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update schema")
	}

	s.logger.InfoContext(ctx, "capability schema updated",
		slog.String("previous", previous.String()),
		slog.String("schema_id", schema.String()),
	)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionSchemaUpdated,
		Actor:     requestcontext.Party(ctx),
		Detail:    "schema " + previous.String() + " -> " + schema.String(),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// AuthorizeUpgrade records that the governor approved deploying a version.
func (s *Service) AuthorizeUpgrade(ctx context.Context, version string) (Upgrade, error) {
	if version == "" {
		return Upgrade{}, dErrors.New(dErrors.CodeInvalidInput, "version is required")
	}

	upgrade := Upgrade{Version: version, AuthorizedAt: requestcontext.Now(ctx)}
	if err := s.store.RecordUpgrade(ctx, upgrade); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Upgrade{}, dErrors.Newf(dErrors.CodeConflict, "version %s is already authorized", version)
		}
		return Upgrade{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record upgrade authorization")
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionUpgradeAuthorized,
		Actor:     requestcontext.Party(ctx),
		Detail:    "version " + version,
		RequestID: requestcontext.RequestID(ctx),
	})
	return upgrade, nil
}

func (s *Service) load(ctx context.Context) (State, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return State{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance state")
	}
	return state, nil
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
