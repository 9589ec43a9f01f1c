package resolver

import (
	"context"
	"time"

	"scrip/internal/token"
	id "scrip/pkg/domain"
	dErrors "scrip/pkg/domain-errors"
	"scrip/pkg/requestcontext"
)

// Variant specializes the lifecycle at its three hook points. Hooks mutate
// the record in place or veto an operation with a coded error; the engine
// owns every side table so hooks stay pure record transforms.
type Variant interface {
	Name() id.Variant
	OnClaimed(ctx context.Context, rec *token.Record) error
	OnTransfer(ctx context.Context, rec *token.Record) error
	OnRevoke(ctx context.Context, rec *token.Record) error
}

// Variants returns all shipped variants keyed by name.
func Variants() map[id.Variant]Variant {
	return map[id.Variant]Variant{
		id.VariantValue:     valueVariant{},
		id.VariantLocked:    lockedVariant{},
		id.VariantRevocable: revocableVariant{},
		id.VariantDelegated: delegatedVariant{},
	}
}

// valueVariant backs the semi-fungible ledger. The claim and transfer paths
// need no specialization; value movement lives in the valueledger service.
type valueVariant struct{}

func (valueVariant) Name() id.Variant { return id.VariantValue }

func (valueVariant) OnClaimed(context.Context, *token.Record) error { return nil }

func (valueVariant) OnTransfer(context.Context, *token.Record) error { return nil }

func (valueVariant) OnRevoke(context.Context, *token.Record) error {
	return dErrors.New(dErrors.CodeRevocationUnsupported, "value-backed records cannot be revoked")
}

// lockedVariant binds a claimed record to its first owner forever. There is
// no unlock path.
type lockedVariant struct{}

func (lockedVariant) Name() id.Variant { return id.VariantLocked }

func (lockedVariant) OnClaimed(context.Context, *token.Record) error { return nil }

func (lockedVariant) OnTransfer(context.Context, *token.Record) error {
	return dErrors.New(dErrors.CodeTokenLocked, "record is permanently locked to its owner")
}

func (lockedVariant) OnRevoke(context.Context, *token.Record) error {
	return dErrors.New(dErrors.CodeRevocationUnsupported, "locked records cannot be revoked")
}

// revocableVariant lets the issuer invalidate a claimed record while
// preserving it for historical queries. Ownership never changes on revoke.
type revocableVariant struct{}

func (revocableVariant) Name() id.Variant { return id.VariantRevocable }

func (revocableVariant) OnClaimed(context.Context, *token.Record) error { return nil }

func (revocableVariant) OnTransfer(context.Context, *token.Record) error { return nil }

func (revocableVariant) OnRevoke(ctx context.Context, rec *token.Record) error {
	if !rec.Valid {
		return dErrors.New(dErrors.CodeAlreadyRevoked, "record is already revoked")
	}
	rec.Valid = false
	rec.RevokedAt = requestcontext.Now(ctx)
	return nil
}

// delegatedVariant supports a time-bound delegated role. A transfer clears
// the role unconditionally; expiry needs no transaction at all because
// reads consult the expiry themselves.
type delegatedVariant struct{}

func (delegatedVariant) Name() id.Variant { return id.VariantDelegated }

func (delegatedVariant) OnClaimed(context.Context, *token.Record) error { return nil }

func (delegatedVariant) OnTransfer(_ context.Context, rec *token.Record) error {
	rec.Delegate = id.PartyID{}
	rec.DelegateExp = time.Time{}
	return nil
}

func (delegatedVariant) OnRevoke(context.Context, *token.Record) error {
	return dErrors.New(dErrors.CodeRevocationUnsupported, "delegated records cannot be revoked")
}
