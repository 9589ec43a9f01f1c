// Package valueledger implements the semi-fungible value model on top of
// the token arena: records carry numeric value, records sharing a slot may
// exchange it, records in different slots never can. Every transfer
// conserves the slot's value sum.
package valueledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scrip/internal/audit"
	"scrip/internal/registry"
	"scrip/internal/token"
	valuemetrics "scrip/internal/valueledger/metrics"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/platform/sentinel"
	"scrip/pkg/requestcontext"
)

const tracerName = "scrip/internal/valueledger"

// RegistrySource resolves a document's issuer and variant.
type RegistrySource interface {
	AssignmentOf(ctx context.Context, doc id.DocumentID) (registry.Assignment, error)
}

// Guard is the pause gate.
type Guard interface {
	Ensure(ctx context.Context) error
}

// AuditPublisher captures value-ledger audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SlotInfo is the query shape for a slot: aggregates plus current holders.
type SlotInfo struct {
	Slot          id.SlotID
	TotalReserved uint64
	TotalMinted   uint64
	Holders       []id.PartyID
}

// Service runs value movement and the approval model.
type Service struct {
	store          token.Store
	registry       RegistrySource
	guard          Guard
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *valuemetrics.Metrics
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

func WithMetrics(m *valuemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store token.Store, reg RegistrySource, guard Guard, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: reg,
		guard:    guard,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransferValue moves value between two claimed records in the same slot.
// The slot's value sum is identical before and after.
func (s *Service) TransferValue(ctx context.Context, caller id.PartyID, fromToken, toToken id.TokenID, amount uint64) (err error) {
	ctx, span := s.tracer.Start(ctx, "valueledger.TransferValue", trace.WithAttributes(
		attribute.String("from_token", fromToken.String()),
		attribute.String("to_token", toToken.String()),
	))
	defer span.End()
	defer func() { s.finishTransfer("within_slot", err) }()

	if err = s.guard.Ensure(ctx); err != nil {
		return err
	}
	if fromToken == toToken {
		return dErrors.New(dErrors.CodeInvalidInput, "source and destination are the same record")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be at least 1")
	}

	var (
		from token.Record
		path string
	)
	err = s.store.Mutate(ctx, func(tx token.Tx) error {
		var txErr error
		from, txErr = s.claimedRecord(tx, fromToken)
		if txErr != nil {
			return txErr
		}
		to, txErr := s.claimedRecord(tx, toToken)
		if txErr != nil {
			return txErr
		}
		if txErr = s.requireValueBacked(ctx, from.DocumentID); txErr != nil {
			return txErr
		}
		if to.DocumentID != from.DocumentID {
			if txErr = s.requireValueBacked(ctx, to.DocumentID); txErr != nil {
				return txErr
			}
		}
		if from.Slot != to.Slot {
			return dErrors.New(dErrors.CodeSlotMismatch, "records belong to different slots")
		}
		if amount > from.Value {
			return dErrors.New(dErrors.CodeInsufficientValue, "amount exceeds the source record's value")
		}

		path, txErr = s.authorize(tx, caller, from, amount)
		if txErr != nil {
			return txErr
		}

		from.Value -= amount
		to.Value += amount
		if txErr = tx.Update(from); txErr != nil {
			return txErr
		}
		return tx.Update(to)
	})
	if err != nil {
		return s.translate(err, "value transfer failed")
	}

	s.metrics.RecordValueMoved(amount)
	s.metrics.RecordAuthorization(path)
	s.emit(ctx, audit.Event{
		Action:     audit.ActionValueTransferred,
		Actor:      caller,
		DocumentID: from.DocumentID,
		TokenID:    &fromToken,
		Slot:       &from.Slot,
		Detail:     strconv.FormatUint(amount, 10) + " to token " + toToken.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return nil
}

// TransferToNewRecord splits value off into a freshly minted claimed record
// in the same slot, owned by the target party.
func (s *Service) TransferToNewRecord(ctx context.Context, caller id.PartyID, fromToken id.TokenID, to id.PartyID, amount uint64) (minted token.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "valueledger.TransferToNewRecord", trace.WithAttributes(
		attribute.String("from_token", fromToken.String()),
	))
	defer span.End()
	defer func() { s.finishTransfer("split", err) }()

	if err = s.guard.Ensure(ctx); err != nil {
		return token.Record{}, err
	}
	if to.IsNil() {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "target party is required")
	}
	if amount == 0 {
		return token.Record{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be at least 1")
	}

	var (
		from token.Record
		path string
	)
	now := requestcontext.Now(ctx)
	err = s.store.Mutate(ctx, func(tx token.Tx) error {
		var txErr error
		from, txErr = s.claimedRecord(tx, fromToken)
		if txErr != nil {
			return txErr
		}
		if txErr = s.requireValueBacked(ctx, from.DocumentID); txErr != nil {
			return txErr
		}
		if amount > from.Value {
			return dErrors.New(dErrors.CodeInsufficientValue, "amount exceeds the source record's value")
		}

		path, txErr = s.authorize(tx, caller, from, amount)
		if txErr != nil {
			return txErr
		}

		from.Value -= amount
		if txErr = tx.Update(from); txErr != nil {
			return txErr
		}

		tokenID, txErr := tx.NextTokenID()
		if txErr != nil {
			return txErr
		}
		minted = token.Record{
			TokenID:    tokenID,
			DocumentID: from.DocumentID,
			Slot:       from.Slot,
			Value:      amount,
			Owner:      to,
			Claimed:    true,
			Valid:      true,
			CreatedAt:  now,
			ClaimedAt:  now,
		}
		if txErr = tx.Insert(minted); txErr != nil {
			return txErr
		}

		// Value moved, none minted: aggregates stay untouched. Only the
		// holder set and the valid count see the new record.
		if txErr = tx.AddHolder(minted.Slot, to); txErr != nil {
			return txErr
		}
		return tx.AddValidCount(to, 1)
	})
	if err != nil {
		return token.Record{}, s.translate(err, "record split failed")
	}

	s.metrics.RecordValueMoved(amount)
	s.metrics.RecordAuthorization(path)
	s.emit(ctx, audit.Event{
		Action:     audit.ActionRecordSplit,
		Actor:      caller,
		DocumentID: from.DocumentID,
		TokenID:    &minted.TokenID,
		Slot:       &minted.Slot,
		Detail:     strconv.FormatUint(amount, 10) + " from token " + fromToken.String() + " to " + to.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return minted, nil
}

// authorize walks the four authorization layers in priority order and
// returns the first that grants the transfer. The allowance layer is the
// only one with a side effect: a spend decrements it.
func (s *Service) authorize(tx token.Tx, caller id.PartyID, from token.Record, amount uint64) (string, error) {
	if from.Owner == caller {
		return "owner", nil
	}

	operator, err := tx.RecordApproval(from.TokenID)
	if err != nil {
		return "", err
	}
	if operator == caller {
		return "record_approval", nil
	}

	approved, err := tx.SlotApproval(from.Slot, from.Owner, caller)
	if err != nil {
		return "", err
	}
	if approved {
		return "slot_approval", nil
	}

	allowance, err := tx.Allowance(from.TokenID, caller)
	if err != nil {
		return "", err
	}
	if allowance > 0 {
		if amount > allowance {
			return "", dErrors.New(dErrors.CodeInsufficientAllowance, "amount exceeds the caller's allowance")
		}
		return "allowance", tx.SetAllowance(from.TokenID, caller, allowance-amount)
	}

	return "", dErrors.New(dErrors.CodeNotAuthorized, "caller may not move this record's value")
}

// Approve sets the record-level operator. The owner or an existing slot
// operator may grant it; the nil party clears it.
func (s *Service) Approve(ctx context.Context, caller id.PartyID, tokenID id.TokenID, operator id.PartyID) error {
	if err := s.guard.Ensure(ctx); err != nil {
		return err
	}

	err := s.store.Mutate(ctx, func(tx token.Tx) error {
		rec, txErr := s.claimedRecord(tx, tokenID)
		if txErr != nil {
			return txErr
		}
		if txErr = s.requireValueBacked(ctx, rec.DocumentID); txErr != nil {
			return txErr
		}

		if rec.Owner != caller {
			slotOperator, apprErr := tx.SlotApproval(rec.Slot, rec.Owner, caller)
			if apprErr != nil {
				return apprErr
			}
			if !slotOperator {
				return dErrors.New(dErrors.CodeNotAuthorized, "caller may not approve this record")
			}
		}
		return tx.SetRecordApproval(tokenID, operator)
	})
	return s.translate(err, "approval failed")
}

// SetSlotApproval grants or revokes an operator over every record the
// caller owns in a slot.
func (s *Service) SetSlotApproval(ctx context.Context, caller id.PartyID, slot id.SlotID, operator id.PartyID, approved bool) error {
	if err := s.guard.Ensure(ctx); err != nil {
		return err
	}
	if operator.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "operator is required")
	}
	if operator == caller {
		return dErrors.New(dErrors.CodeInvalidInput, "caller cannot approve themselves")
	}

	err := s.store.Mutate(ctx, func(tx token.Tx) error {
		return tx.SetSlotApproval(slot, caller, operator, approved)
	})
	return s.translate(err, "slot approval failed")
}

// SetAllowance sets a spender's numeric allowance on a record. The owner or
// the record-approved operator may set it; zero clears.
func (s *Service) SetAllowance(ctx context.Context, caller id.PartyID, tokenID id.TokenID, spender id.PartyID, amount uint64) error {
	if err := s.guard.Ensure(ctx); err != nil {
		return err
	}
	if spender.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "spender is required")
	}

	err := s.store.Mutate(ctx, func(tx token.Tx) error {
		rec, txErr := s.claimedRecord(tx, tokenID)
		if txErr != nil {
			return txErr
		}
		if txErr = s.requireValueBacked(ctx, rec.DocumentID); txErr != nil {
			return txErr
		}

		if rec.Owner != caller {
			operator, apprErr := tx.RecordApproval(tokenID)
			if apprErr != nil {
				return apprErr
			}
			if operator != caller {
				return dErrors.New(dErrors.CodeNotAuthorized, "caller may not set allowances on this record")
			}
		}
		return tx.SetAllowance(tokenID, spender, amount)
	})
	return s.translate(err, "allowance update failed")
}

// BalanceOf sums the values of a party's valid claimed records in a slot.
func (s *Service) BalanceOf(ctx context.Context, party id.PartyID, slot id.SlotID) (uint64, error) {
	var balance uint64
	err := s.store.View(ctx, func(tx token.Tx) error {
		records, txErr := tx.BySlot(slot)
		if txErr != nil {
			return txErr
		}
		for _, rec := range records {
			if rec.Claimed && rec.Valid && rec.Owner == party {
				balance += rec.Value
			}
		}
		return nil
	})
	if err != nil {
		return 0, s.translate(err, "balance lookup failed")
	}
	return balance, nil
}

// ValueOf returns a record's current value.
func (s *Service) ValueOf(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	rec, err := s.record(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return rec.Value, nil
}

// SlotOf returns the slot a record belongs to.
func (s *Service) SlotOf(ctx context.Context, tokenID id.TokenID) (id.SlotID, error) {
	rec, err := s.record(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return rec.Slot, nil
}

// AllowanceOf returns a spender's remaining allowance on a record.
func (s *Service) AllowanceOf(ctx context.Context, tokenID id.TokenID, spender id.PartyID) (uint64, error) {
	var allowance uint64
	err := s.store.View(ctx, func(tx token.Tx) error {
		if _, txErr := s.claimedRecord(tx, tokenID); txErr != nil {
			return txErr
		}
		var txErr error
		allowance, txErr = tx.Allowance(tokenID, spender)
		return txErr
	})
	if err != nil {
		return 0, s.translate(err, "allowance lookup failed")
	}
	return allowance, nil
}

// SlotInfoOf returns a slot's aggregates and holder set.
func (s *Service) SlotInfoOf(ctx context.Context, slot id.SlotID) (SlotInfo, error) {
	info := SlotInfo{Slot: slot}
	err := s.store.View(ctx, func(tx token.Tx) error {
		agg, txErr := tx.Aggregate(slot)
		if txErr != nil {
			return txErr
		}
		info.TotalReserved = agg.TotalReserved
		info.TotalMinted = agg.TotalMinted

		info.Holders, txErr = tx.Holders(slot)
		return txErr
	})
	if err != nil {
		return SlotInfo{}, s.translate(err, "slot lookup failed")
	}
	return info, nil
}

func (s *Service) record(ctx context.Context, tokenID id.TokenID) (token.Record, error) {
	var rec token.Record
	err := s.store.View(ctx, func(tx token.Tx) error {
		var txErr error
		rec, txErr = tx.Get(tokenID)
		return txErr
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return token.Record{}, dErrors.New(dErrors.CodeTokenNotFound, "no such record")
		}
		return token.Record{}, s.translate(err, "record lookup failed")
	}
	return rec, nil
}

func (s *Service) claimedRecord(tx token.Tx, tokenID id.TokenID) (token.Record, error) {
	rec, err := tx.Get(tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return token.Record{}, dErrors.New(dErrors.CodeTokenNotFound, "no such record")
		}
		return token.Record{}, err
	}
	if !rec.Claimed {
		return token.Record{}, dErrors.New(dErrors.CodeTokenNotClaimed, "record has not been claimed")
	}
	return rec, nil
}

// requireValueBacked rejects operations on documents whose variant is not
// the value ledger.
func (s *Service) requireValueBacked(ctx context.Context, doc id.DocumentID) error {
	assignment, err := s.registry.AssignmentOf(ctx, doc)
	if err != nil {
		return err
	}
	if assignment.Variant != id.VariantValue {
		return dErrors.New(dErrors.CodeNotValueBacked, "document's records do not carry transferable value")
	}
	return nil
}

func (s *Service) finishTransfer(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.RecordTransfer(kind, outcome)
}

func (s *Service) translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
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
