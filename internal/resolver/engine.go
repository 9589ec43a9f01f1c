// Package resolver runs the reservation/claim lifecycle shared by every
// token-standard variant. One generic engine owns the state machine and the
// side-table bookkeeping; variants specialize it only through the three-hook
// Variant interface.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scrip/internal/audit"
	"scrip/internal/capability"
	"scrip/internal/credential"
	"scrip/internal/registry"
	resolvermetrics "scrip/internal/resolver/metrics"
	"scrip/internal/token"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

const tracerName = "scrip/internal/resolver"

// DefaultMaxLabelBytes bounds reservation labels when no override is
// configured.
const DefaultMaxLabelBytes = 512

// RegistrySource resolves a document's issuer and variant. The registry
// service satisfies this.
type RegistrySource interface {
	AssignmentOf(ctx context.Context, doc id.DocumentID) (registry.Assignment, error)
}

// CapabilityVerifier is the enforcing capability check. The verifier service
// satisfies this.
type CapabilityVerifier interface {
	Verify(ctx context.Context, caller id.PartyID, doc id.DocumentID, required capability.Mask, attID id.AttestationID) (capability.Mask, error)
}

// Guard is the pause gate. The admin service satisfies this.
type Guard interface {
	Ensure(ctx context.Context) error
}

// PermitValidator verifies a delegation permit. The jwt_token service
// satisfies this.
type PermitValidator interface {
	ValidateDelegationPermit(raw string) (*PermitClaims, error)
}

// PermitClaims is what a delegation permit must bind. Ids travel as strings
// exactly as the permit carries them; the engine compares, never parses.
type PermitClaims struct {
	Owner         string
	Delegate      string
	DocumentID    string
	TokenID       string
	RoleExpiresAt int64
}

// CredentialIssuer fires the post-claim side effect. Issue never fails from
// the engine's point of view.
type CredentialIssuer interface {
	Issue(ctx context.Context, event credential.ClaimEvent)
}

// AuditPublisher captures lifecycle audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Engine is the generic reservation/claim lifecycle.
type Engine struct {
	store          token.Store
	registry       RegistrySource
	verifier       CapabilityVerifier
	guard          Guard
	permits        PermitValidator
	credentials    CredentialIssuer
	variants       map[id.Variant]Variant
	admins         map[id.PartyID]bool
	maxLabelBytes  int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *resolvermetrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) {
		e.auditPublisher = publisher
	}
}

func WithMetrics(m *resolvermetrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithPermitValidator(v PermitValidator) Option {
	return func(e *Engine) {
		e.permits = v
	}
}

func WithCredentialIssuer(issuer CredentialIssuer) Option {
	return func(e *Engine) {
		e.credentials = issuer
	}
}

// WithAdmins names platform administrators allowed to revoke alongside the
// document's issuer.
func WithAdmins(admins []id.PartyID) Option {
	return func(e *Engine) {
		for _, admin := range admins {
			e.admins[admin] = true
		}
	}
}

func WithMaxLabelBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLabelBytes = n
		}
	}
}

func NewEngine(store token.Store, reg RegistrySource, verifier CapabilityVerifier, guard Guard, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		registry:      reg,
		verifier:      verifier,
		guard:         guard,
		variants:      Variants(),
		admins:        make(map[id.PartyID]bool),
		maxLabelBytes: DefaultMaxLabelBytes,
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reserve creates a targeted reservation: only the named recipient can claim
// it. Caller must be the document's registered issuer.
func (e *Engine) Reserve(ctx context.Context, caller id.PartyID, doc id.DocumentID, recipient id.PartyID, slot id.SlotID, value uint64, label string) (token.Record, error) {
	if recipient.IsNil() {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "recipient is required; use an anonymous reservation instead")
	}
	return e.reserve(ctx, caller, doc, recipient, slot, value, label)
}

// ReserveAnonymous creates a reservation with no named recipient: the first
// caller whose attestation passes the verifier claims it. First committed
// wins by construction; the loser fails with already_claimed.
func (e *Engine) ReserveAnonymous(ctx context.Context, caller id.PartyID, doc id.DocumentID, slot id.SlotID, value uint64, label string) (token.Record, error) {
	return e.reserve(ctx, caller, doc, id.PartyID{}, slot, value, label)
}

func (e *Engine) reserve(ctx context.Context, caller id.PartyID, doc id.DocumentID, recipient id.PartyID, slot id.SlotID, value uint64, label string) (rec token.Record, err error) {
	ctx, finish := e.begin(ctx, "reserve", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return token.Record{}, err
	}
	if assignment.Issuer != caller {
		return token.Record{}, dErrors.New(dErrors.CodeOnlyIssuerMayReserve, "only the document's registered issuer may reserve")
	}

	if len(label) > e.maxLabelBytes {
		return token.Record{}, dErrors.Newf(dErrors.CodeLabelTooLarge, "label exceeds %d bytes", e.maxLabelBytes)
	}

	// Single-token variants carry exactly one unit; only the value variant
	// takes a caller-chosen value.
	if assignment.Variant.SingleToken() {
		value = 1
	} else if value == 0 {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "value must be at least 1")
	}

	now := requestcontext.Now(ctx)
	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		existing, found, lookErr := liveReservation(tx, assignment.Variant, doc, slot)
		if lookErr != nil {
			return lookErr
		}
		if found {
			if existing.Claimed {
				return dErrors.New(dErrors.CodeAlreadyClaimed, "document already has a claimed record")
			}
			// Repeating an identical reservation is idempotent; anything
			// else conflicts with the live one.
			if existing.ReservedFor == recipient && existing.Slot == slot &&
				existing.Value == value && existing.Label == label {
				rec = existing
				return nil
			}
			return dErrors.New(dErrors.CodeAlreadyReserved, "a different reservation is already live")
		}

		tokenID, allocErr := tx.NextTokenID()
		if allocErr != nil {
			return allocErr
		}

		rec = token.Record{
			TokenID:     tokenID,
			DocumentID:  doc,
			Slot:        slot,
			Value:       value,
			ReservedFor: recipient,
			Label:       label,
			CreatedAt:   now,
		}
		if insErr := tx.Insert(rec); insErr != nil {
			return insErr
		}

		agg, aggErr := tx.Aggregate(slot)
		if aggErr != nil {
			return aggErr
		}
		agg.TotalReserved += value
		return tx.PutAggregate(agg)
	})
	if err != nil {
		return token.Record{}, e.translate(err, "reservation failed")
	}

	e.emit(ctx, audit.Event{
		Action:     audit.ActionTokenReserved,
		Actor:      caller,
		DocumentID: doc,
		TokenID:    &rec.TokenID,
		Slot:       &rec.Slot,
		Detail:     reserveDetail(recipient, rec.Value),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return rec, nil
}

// liveReservation finds the record that blocks or satisfies a new
// reservation. Single-token variants key by document; the value variant keys
// by (document, slot) and claimed records never block further reservations.
func liveReservation(tx token.Tx, variant id.Variant, doc id.DocumentID, slot id.SlotID) (token.Record, bool, error) {
	records, err := tx.ByDocument(doc)
	if err != nil {
		return token.Record{}, false, err
	}

	if variant.SingleToken() {
		if len(records) > 0 {
			return records[0], true, nil
		}
		return token.Record{}, false, nil
	}

	for _, rec := range records {
		if rec.Slot == slot && !rec.Claimed {
			return rec, true, nil
		}
	}
	return token.Record{}, false, nil
}

// Claim transitions a reservation to claimed, exactly once. The capability
// check runs inside the ledger transaction, so a claim that loses the race
// to a concurrent one observes the winner's commit and fails cleanly.
func (e *Engine) Claim(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, attID id.AttestationID) (rec token.Record, err error) {
	ctx, finish := e.begin(ctx, "claim", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return token.Record{}, err
	}
	variant, err := e.variantFor(assignment.Variant)
	if err != nil {
		return token.Record{}, err
	}

	now := requestcontext.Now(ctx)
	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		current, getErr := e.getRecord(tx, doc, tokenID)
		if getErr != nil {
			return getErr
		}
		if current.Claimed {
			return dErrors.New(dErrors.CodeAlreadyClaimed, "record is already claimed")
		}
		if !current.Anonymous() && current.ReservedFor != caller {
			return dErrors.New(dErrors.CodeNotReservedForCaller, "record is reserved for another party")
		}

		if _, verifyErr := e.verifier.Verify(ctx, caller, doc, capability.Claim, attID); verifyErr != nil {
			return verifyErr
		}

		current.Owner = caller
		current.Claimed = true
		current.Valid = true
		current.ReservedFor = id.PartyID{}
		current.ClaimedAt = now

		if hookErr := variant.OnClaimed(ctx, &current); hookErr != nil {
			return hookErr
		}
		if updErr := tx.Update(current); updErr != nil {
			return updErr
		}

		agg, aggErr := tx.Aggregate(current.Slot)
		if aggErr != nil {
			return aggErr
		}
		agg.TotalReserved -= current.Value
		agg.TotalMinted += current.Value
		if putErr := tx.PutAggregate(agg); putErr != nil {
			return putErr
		}

		if holderErr := tx.AddHolder(current.Slot, caller); holderErr != nil {
			return holderErr
		}
		if countErr := tx.AddValidCount(caller, 1); countErr != nil {
			return countErr
		}

		rec = current
		return nil
	})
	if err != nil {
		return token.Record{}, e.translate(err, "claim failed")
	}

	e.metrics.RecordClaim(string(assignment.Variant))
	e.emit(ctx, audit.Event{
		Action:        audit.ActionTokenClaimed,
		Actor:         caller,
		DocumentID:    doc,
		TokenID:       &rec.TokenID,
		Slot:          &rec.Slot,
		AttestationID: attID,
		RequestID:     requestcontext.RequestID(ctx),
	})

	// The claim has committed; credential issuance cannot touch it anymore.
	if e.credentials != nil {
		e.credentials.Issue(ctx, credential.ClaimEvent{
			DocumentID:    doc,
			TokenID:       rec.TokenID,
			Slot:          rec.Slot,
			Value:         rec.Value,
			Owner:         caller,
			AttestationID: attID,
			ClaimedAt:     rec.ClaimedAt,
		})
	}
	return rec, nil
}

// Cancel removes a reservation before it is claimed. Only the document's
// registered issuer may cancel.
func (e *Engine) Cancel(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID) (err error) {
	ctx, finish := e.begin(ctx, "cancel", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return err
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return err
	}
	if assignment.Issuer != caller {
		return dErrors.New(dErrors.CodeOnlyIssuerMayCancel, "only the document's registered issuer may cancel")
	}

	var cancelled token.Record
	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		rec, getErr := e.getRecord(tx, doc, tokenID)
		if getErr != nil {
			return getErr
		}
		if rec.Claimed {
			return dErrors.New(dErrors.CodeAlreadyClaimed, "claimed records cannot be cancelled")
		}

		if delErr := tx.Delete(rec.TokenID); delErr != nil {
			return delErr
		}

		agg, aggErr := tx.Aggregate(rec.Slot)
		if aggErr != nil {
			return aggErr
		}
		agg.TotalReserved -= rec.Value
		if putErr := tx.PutAggregate(agg); putErr != nil {
			return putErr
		}

		cancelled = rec
		return nil
	})
	if err != nil {
		return e.translate(err, "cancel failed")
	}

	e.emit(ctx, audit.Event{
		Action:     audit.ActionReservationCancelled,
		Actor:      caller,
		DocumentID: doc,
		TokenID:    &cancelled.TokenID,
		Slot:       &cancelled.Slot,
		RequestID:  requestcontext.RequestID(ctx),
	})
	return nil
}

// Transfer moves whole-record ownership of a claimed record. The variant
// hook may veto (permanent lock) or mutate (delegated role cleared).
func (e *Engine) Transfer(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, to id.PartyID) (rec token.Record, err error) {
	ctx, finish := e.begin(ctx, "transfer", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}
	if to.IsNil() {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "transfer target is required")
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return token.Record{}, err
	}
	variant, err := e.variantFor(assignment.Variant)
	if err != nil {
		return token.Record{}, err
	}

	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		current, getErr := e.getRecord(tx, doc, tokenID)
		if getErr != nil {
			return getErr
		}
		if !current.Claimed {
			return dErrors.New(dErrors.CodeTokenNotClaimed, "record has not been claimed")
		}
		if current.Owner != caller {
			return dErrors.New(dErrors.CodeNotAuthorized, "only the record owner may transfer it")
		}

		if hookErr := variant.OnTransfer(ctx, &current); hookErr != nil {
			return hookErr
		}

		previous := current.Owner
		current.Owner = to
		if updErr := tx.Update(current); updErr != nil {
			return updErr
		}

		// Approvals are grants on the old owner's record; they do not
		// survive the ownership change.
		if apprErr := tx.SetRecordApproval(current.TokenID, id.PartyID{}); apprErr != nil {
			return apprErr
		}

		if holderErr := tx.AddHolder(current.Slot, to); holderErr != nil {
			return holderErr
		}
		if current.Valid {
			if countErr := tx.AddValidCount(previous, -1); countErr != nil {
				return countErr
			}
			if countErr := tx.AddValidCount(to, 1); countErr != nil {
				return countErr
			}
		}

		rec = current
		return nil
	})
	if err != nil {
		return token.Record{}, e.translate(err, "transfer failed")
	}

	e.emit(ctx, audit.Event{
		Action:     audit.ActionTokenTransferred,
		Actor:      caller,
		DocumentID: doc,
		TokenID:    &rec.TokenID,
		Slot:       &rec.Slot,
		Detail:     "to " + to.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return rec, nil
}

// Revoke invalidates a claimed record on the revocable variant. The record
// survives for historical queries; only Valid and RevokedAt change. Allowed
// to the document's issuer and to platform administrators.
func (e *Engine) Revoke(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID) (rec token.Record, err error) {
	ctx, finish := e.begin(ctx, "revoke", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return token.Record{}, err
	}
	if assignment.Issuer != caller && !e.admins[caller] {
		return token.Record{}, dErrors.New(dErrors.CodeNotAuthorized, "only the issuer or an administrator may revoke")
	}
	variant, err := e.variantFor(assignment.Variant)
	if err != nil {
		return token.Record{}, err
	}

	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		current, getErr := e.getRecord(tx, doc, tokenID)
		if getErr != nil {
			return getErr
		}
		if !current.Claimed {
			return dErrors.New(dErrors.CodeTokenNotClaimed, "record has not been claimed")
		}

		if hookErr := variant.OnRevoke(ctx, &current); hookErr != nil {
			return hookErr
		}
		if updErr := tx.Update(current); updErr != nil {
			return updErr
		}

		// Exactly once per revocation: the hook fails on a second revoke
		// before this line can run again.
		if countErr := tx.AddValidCount(current.Owner, -1); countErr != nil {
			return countErr
		}

		rec = current
		return nil
	})
	if err != nil {
		return token.Record{}, e.translate(err, "revoke failed")
	}

	e.emit(ctx, audit.Event{
		Action:     audit.ActionTokenRevoked,
		Actor:      caller,
		DocumentID: doc,
		TokenID:    &rec.TokenID,
		Slot:       &rec.Slot,
		RequestID:  requestcontext.RequestID(ctx),
	})
	return rec, nil
}

// Delegate assigns a time-bound role on a claimed record of the delegated
// variant. The owner calls directly; a third party must present a permit
// signed with the platform key binding exactly this delegation.
func (e *Engine) Delegate(ctx context.Context, caller id.PartyID, doc id.DocumentID, tokenID id.TokenID, delegate id.PartyID, expiresAt time.Time, permit string) (rec token.Record, err error) {
	ctx, finish := e.begin(ctx, "delegate", doc)
	defer func() { finish(err) }()

	if err = e.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}
	if delegate.IsNil() {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "delegate is required")
	}
	if !expiresAt.After(requestcontext.Now(ctx)) {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "delegation expiry must be in the future")
	}

	assignment, err := e.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return token.Record{}, err
	}
	if assignment.Variant != id.VariantDelegated {
		return token.Record{}, dErrors.New(dErrors.CodeDelegationUnsupported, "document's variant does not support delegation")
	}

	err = e.store.Mutate(ctx, func(tx token.Tx) error {
		current, getErr := e.getRecord(tx, doc, tokenID)
		if getErr != nil {
			return getErr
		}
		if !current.Claimed {
			return dErrors.New(dErrors.CodeTokenNotClaimed, "record has not been claimed")
		}

		if current.Owner != caller {
			if permitErr := e.checkPermit(permit, current, delegate, expiresAt); permitErr != nil {
				return permitErr
			}
		}

		current.Delegate = delegate
		current.DelegateExp = expiresAt
		if updErr := tx.Update(current); updErr != nil {
			return updErr
		}

		rec = current
		return nil
	})
	if err != nil {
		return token.Record{}, e.translate(err, "delegation failed")
	}

	e.emit(ctx, audit.Event{
		Action:     audit.ActionRoleDelegated,
		Actor:      caller,
		DocumentID: doc,
		TokenID:    &rec.TokenID,
		Slot:       &rec.Slot,
		Detail:     "delegate " + delegate.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return rec, nil
}

// checkPermit validates a third party's delegation permit against the exact
// delegation being submitted. Any mismatch reads as a bad signature: the
// permit either authorizes this delegation or it does not.
func (e *Engine) checkPermit(permit string, rec token.Record, delegate id.PartyID, expiresAt time.Time) error {
	if e.permits == nil || permit == "" {
		return dErrors.New(dErrors.CodeInvalidDelegationSignature, "a delegation permit is required")
	}

	claims, err := e.permits.ValidateDelegationPermit(permit)
	if err != nil {
		return err
	}
	if claims.Owner != rec.Owner.String() ||
		claims.Delegate != delegate.String() ||
		claims.DocumentID != rec.DocumentID.String() ||
		claims.TokenID != rec.TokenID.String() ||
		claims.RoleExpiresAt != expiresAt.Unix() {
		return dErrors.New(dErrors.CodeInvalidDelegationSignature, "permit does not authorize this delegation")
	}
	return nil
}

// DelegateOf reads the current delegated role. A role past its expiry reads
// as empty with no mutation.
func (e *Engine) DelegateOf(ctx context.Context, doc id.DocumentID, tokenID id.TokenID) (id.PartyID, time.Time, error) {
	rec, err := e.Get(ctx, doc, tokenID)
	if err != nil {
		return id.PartyID{}, time.Time{}, err
	}
	delegate, expiry := rec.CurrentDelegate(requestcontext.Now(ctx))
	return delegate, expiry, nil
}

// Get returns one record under a document.
func (e *Engine) Get(ctx context.Context, doc id.DocumentID, tokenID id.TokenID) (token.Record, error) {
	var rec token.Record
	err := e.store.View(ctx, func(tx token.Tx) error {
		var getErr error
		rec, getErr = e.getRecord(tx, doc, tokenID)
		return getErr
	})
	if err != nil {
		return token.Record{}, e.translate(err, "record lookup failed")
	}
	return rec, nil
}

// OwnerOf returns the owner of a claimed record.
func (e *Engine) OwnerOf(ctx context.Context, doc id.DocumentID, tokenID id.TokenID) (id.PartyID, error) {
	rec, err := e.Get(ctx, doc, tokenID)
	if err != nil {
		return id.PartyID{}, err
	}
	if !rec.Claimed {
		return id.PartyID{}, dErrors.New(dErrors.CodeTokenNotClaimed, "record has not been claimed")
	}
	return rec.Owner, nil
}

// List returns a document's records ordered by token id.
func (e *Engine) List(ctx context.Context, doc id.DocumentID) ([]token.Record, error) {
	var records []token.Record
	err := e.store.View(ctx, func(tx token.Tx) error {
		var listErr error
		records, listErr = tx.ByDocument(doc)
		return listErr
	})
	if err != nil {
		return nil, e.translate(err, "record listing failed")
	}
	return records, nil
}

// getRecord loads a record and checks it belongs to the document. A record
// under a different document reads as absent, not as a hint that the token
// id exists elsewhere.
func (e *Engine) getRecord(tx token.Tx, doc id.DocumentID, tokenID id.TokenID) (token.Record, error) {
	rec, err := tx.Get(tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return token.Record{}, dErrors.New(dErrors.CodeTokenNotFound, "no such record under this document")
		}
		return token.Record{}, err
	}
	if rec.DocumentID != doc {
		return token.Record{}, dErrors.New(dErrors.CodeTokenNotFound, "no such record under this document")
	}
	return rec, nil
}

func (e *Engine) variantFor(name id.Variant) (Variant, error) {
	variant, ok := e.variants[name]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "no variant registered for %q", name)
	}
	return variant, nil
}

// translate wraps store-level errors; coded domain errors pass through.
func (e *Engine) translate(err error, message string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

// begin opens a span and returns a closure that records the operation's
// metric outcome.
func (e *Engine) begin(ctx context.Context, operation string, doc id.DocumentID) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "resolver."+operation, trace.WithAttributes(
		attribute.String("document_id", doc.String()),
	))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
		}
		e.metrics.RecordOperation(operation, outcome, time.Since(start))
		span.End()
	}
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if e.auditPublisher == nil {
		return
	}
	if err := e.auditPublisher.Emit(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "audit emit failed",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
	}
}

func reserveDetail(recipient id.PartyID, value uint64) string {
	amount := strconv.FormatUint(value, 10)
	if recipient.IsNil() {
		return "anonymous, value " + amount
	}
	return "for " + recipient.String() + ", value " + amount
}
