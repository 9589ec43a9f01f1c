package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

func mustParty(t *testing.T) id.PartyID {
	t.Helper()
	party, err := id.ParsePartyID(uuid.NewString())
	require.NoError(t, err)
	return party
}

func mustDoc(t *testing.T) id.DocumentID {
	t.Helper()
	doc, err := id.ParseDocumentID(uuid.NewString())
	require.NoError(t, err)
	return doc
}

func TestInMemoryStore_MutateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	doc := mustDoc(t)

	boom := errors.New("boom")
	err := store.Mutate(ctx, func(tx Tx) error {
		tokenID, err := tx.NextTokenID()
		require.NoError(t, err)
		require.NoError(t, tx.Insert(Record{TokenID: tokenID, DocumentID: doc, Value: 10, CreatedAt: time.Now()}))
		require.NoError(t, tx.PutAggregate(SlotAggregate{Slot: 1, TotalReserved: 10}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the failed transaction is visible.
	require.NoError(t, store.View(ctx, func(tx Tx) error {
		_, err := tx.Get(0)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		agg, err := tx.Aggregate(1)
		require.NoError(t, err)
		assert.Zero(t, agg.TotalReserved)
		return nil
	}))

	// Token ids restart from zero because the allocation rolled back too.
	require.NoError(t, store.Mutate(ctx, func(tx Tx) error {
		tokenID, err := tx.NextTokenID()
		require.NoError(t, err)
		assert.Equal(t, id.TokenID(0), tokenID)
		return tx.Insert(Record{TokenID: tokenID, DocumentID: doc, CreatedAt: time.Now()})
	}))
}

func TestInMemoryStore_RecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	doc := mustDoc(t)
	owner := mustParty(t)

	require.NoError(t, store.Mutate(ctx, func(tx Tx) error {
		tokenID, err := tx.NextTokenID()
		require.NoError(t, err)
		return tx.Insert(Record{
			TokenID:    tokenID,
			DocumentID: doc,
			Slot:       7,
			Value:      100,
			Owner:      owner,
			Claimed:    true,
			Valid:      true,
			CreatedAt:  time.Now(),
		})
	}))

	require.NoError(t, store.View(ctx, func(tx Tx) error {
		rec, err := tx.Get(0)
		require.NoError(t, err)
		assert.Equal(t, doc, rec.DocumentID)
		assert.Equal(t, uint64(100), rec.Value)

		byDoc, err := tx.ByDocument(doc)
		require.NoError(t, err)
		require.Len(t, byDoc, 1)

		bySlot, err := tx.BySlot(7)
		require.NoError(t, err)
		require.Len(t, bySlot, 1)
		return nil
	}))
}

func TestInMemoryStore_DeleteClearsSideEntries(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	operator := mustParty(t)
	spender := mustParty(t)

	require.NoError(t, store.Mutate(ctx, func(tx Tx) error {
		require.NoError(t, tx.Insert(Record{TokenID: 0, DocumentID: mustDoc(t), CreatedAt: time.Now()}))
		require.NoError(t, tx.SetRecordApproval(0, operator))
		require.NoError(t, tx.SetAllowance(0, spender, 50))
		return tx.Delete(0)
	}))

	require.NoError(t, store.View(ctx, func(tx Tx) error {
		approval, err := tx.RecordApproval(0)
		require.NoError(t, err)
		assert.True(t, approval.IsNil())

		allowance, err := tx.Allowance(0, spender)
		require.NoError(t, err)
		assert.Zero(t, allowance)
		return nil
	}))
}

func TestInMemoryStore_HoldersAndCounts(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	holder := mustParty(t)

	require.NoError(t, store.Mutate(ctx, func(tx Tx) error {
		require.NoError(t, tx.AddHolder(3, holder))
		require.NoError(t, tx.AddHolder(3, holder)) // idempotent
		require.NoError(t, tx.AddValidCount(holder, 2))
		return tx.AddValidCount(holder, -1)
	}))

	require.NoError(t, store.View(ctx, func(tx Tx) error {
		holders, err := tx.Holders(3)
		require.NoError(t, err)
		assert.Equal(t, []id.PartyID{holder}, holders)

		count, err := tx.ValidCount(holder)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
		return nil
	}))

	// A decrement below zero is an invariant violation at the store.
	err := store.Mutate(ctx, func(tx Tx) error {
		return tx.AddValidCount(holder, -5)
	})
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	err = store.Mutate(ctx, func(tx Tx) error {
		return tx.AddValidCount(mustParty(t), -1)
	})
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestRecord_CurrentDelegate(t *testing.T) {
	now := time.Now()
	delegate := mustParty(t)
	rec := Record{Delegate: delegate, DelegateExp: now}

	gotDelegate, gotExp := rec.CurrentDelegate(now)
	assert.Equal(t, delegate, gotDelegate)
	assert.Equal(t, now, gotExp)

	gotDelegate, _ = rec.CurrentDelegate(now.Add(time.Nanosecond))
	assert.True(t, gotDelegate.IsNil())
}
