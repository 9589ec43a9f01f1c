// Package token holds the ledger's token records and the transactional
// store they live in. A record is both the reservation and the claimed
// token: Claimed flips exactly once and the record keeps its identity.
package token

import (
	"time"

	id "scrip/pkg/domain"
)

// Record is one entry in the token arena.
//
// Invariants:
//   - TokenID and DocumentID never change after creation
//   - Claimed is a one-way transition; Cancel deletes instead of reverting
//   - ReservedFor is cleared by the claim; a nil ReservedFor before the
//     claim means the reservation is anonymous
//   - Valid is true from claim until a revocation clears it
type Record struct {
	TokenID     id.TokenID
	DocumentID  id.DocumentID
	Slot        id.SlotID
	Value       uint64
	ReservedFor id.PartyID
	Owner       id.PartyID
	Claimed     bool
	Valid       bool
	RevokedAt   time.Time
	Delegate    id.PartyID
	DelegateExp time.Time
	Label       string
	CreatedAt   time.Time
	ClaimedAt   time.Time
}

// Anonymous reports whether the reservation names no recipient.
func (r Record) Anonymous() bool {
	return r.ReservedFor.IsNil()
}

// Revoked reports whether the record has been revoked.
func (r Record) Revoked() bool {
	return !r.RevokedAt.IsZero()
}

// CurrentDelegate returns the delegated role as of now. A role past its
// expiry reads as empty without any mutation; expiring exactly now still
// holds.
func (r Record) CurrentDelegate(now time.Time) (id.PartyID, time.Time) {
	if r.Delegate.IsNil() || r.DelegateExp.IsZero() || now.After(r.DelegateExp) {
		return id.PartyID{}, time.Time{}
	}
	return r.Delegate, r.DelegateExp
}

// SlotAggregate tracks per-slot value totals. TotalReserved sums unclaimed
// reservations, TotalMinted sums claimed records; every lifecycle mutation
// moves value between the two or removes it, never invents it.
type SlotAggregate struct {
	Slot          id.SlotID
	TotalReserved uint64
	TotalMinted   uint64
}
