package token

import (
	"context"

	id "scrip/pkg/domain"
)

// Store is the transactional home of token records and their side tables.
//
// Mutate runs fn inside one all-or-nothing transaction; the store serializes
// transactions globally, which is the ledger's whole concurrency model
// (first committed claim wins, the loser observes its effects). View runs fn
// against a read-only snapshot.
//
// Implementations: InMemoryStore (mutex plus copy-on-write state swap) and
// PostgresStore (database transaction plus an advisory lock).
type Store interface {
	Mutate(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the ledger state inside one transaction. Lookups that miss
// return sentinel.ErrNotFound; aggregate and counter reads return zero
// values instead, since absence just means nothing happened yet.
type Tx interface {
	// NextTokenID allocates the next id in the global sequence. Allocation
	// happens inside the transaction, so an abort leaves no gap.
	NextTokenID() (id.TokenID, error)

	Insert(rec Record) error
	Get(token id.TokenID) (Record, error)
	Update(rec Record) error
	Delete(token id.TokenID) error

	// ByDocument returns a document's records ordered by token id.
	ByDocument(doc id.DocumentID) ([]Record, error)
	// BySlot returns a slot's records ordered by token id.
	BySlot(slot id.SlotID) ([]Record, error)

	Aggregate(slot id.SlotID) (SlotAggregate, error)
	PutAggregate(agg SlotAggregate) error

	AddHolder(slot id.SlotID, holder id.PartyID) error
	Holders(slot id.SlotID) ([]id.PartyID, error)

	ValidCount(holder id.PartyID) (uint64, error)
	AddValidCount(holder id.PartyID, delta int64) error

	// RecordApproval returns the approved operator for a record, or the nil
	// party when none is set. Setting the nil party clears the approval.
	RecordApproval(token id.TokenID) (id.PartyID, error)
	SetRecordApproval(token id.TokenID, operator id.PartyID) error

	SlotApproval(slot id.SlotID, owner, operator id.PartyID) (bool, error)
	SetSlotApproval(slot id.SlotID, owner, operator id.PartyID, approved bool) error

	Allowance(token id.TokenID, spender id.PartyID) (uint64, error)
	SetAllowance(token id.TokenID, spender id.PartyID, amount uint64) error
}
