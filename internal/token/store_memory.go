package token

import (
	"context"
	"sort"
	"sync"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

type slotApprovalKey struct {
	slot     id.SlotID
	owner    id.PartyID
	operator id.PartyID
}

type allowanceKey struct {
	token   id.TokenID
	spender id.PartyID
}

// ledgerState is everything a transaction can touch, kept together so
// Mutate can stage a full copy and swap it in atomically.
type ledgerState struct {
	nextID          id.TokenID
	records         map[id.TokenID]Record
	aggregates      map[id.SlotID]SlotAggregate
	holders         map[id.SlotID]map[id.PartyID]bool
	validCounts     map[id.PartyID]uint64
	recordApprovals map[id.TokenID]id.PartyID
	slotApprovals   map[slotApprovalKey]bool
	allowances      map[allowanceKey]uint64
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		records:         make(map[id.TokenID]Record),
		aggregates:      make(map[id.SlotID]SlotAggregate),
		holders:         make(map[id.SlotID]map[id.PartyID]bool),
		validCounts:     make(map[id.PartyID]uint64),
		recordApprovals: make(map[id.TokenID]id.PartyID),
		slotApprovals:   make(map[slotApprovalKey]bool),
		allowances:      make(map[allowanceKey]uint64),
	}
}

func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		nextID:          s.nextID,
		records:         make(map[id.TokenID]Record, len(s.records)),
		aggregates:      make(map[id.SlotID]SlotAggregate, len(s.aggregates)),
		holders:         make(map[id.SlotID]map[id.PartyID]bool, len(s.holders)),
		validCounts:     make(map[id.PartyID]uint64, len(s.validCounts)),
		recordApprovals: make(map[id.TokenID]id.PartyID, len(s.recordApprovals)),
		slotApprovals:   make(map[slotApprovalKey]bool, len(s.slotApprovals)),
		allowances:      make(map[allowanceKey]uint64, len(s.allowances)),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.aggregates {
		c.aggregates[k] = v
	}
	for slot, set := range s.holders {
		inner := make(map[id.PartyID]bool, len(set))
		for h := range set {
			inner[h] = true
		}
		c.holders[slot] = inner
	}
	for k, v := range s.validCounts {
		c.validCounts[k] = v
	}
	for k, v := range s.recordApprovals {
		c.recordApprovals[k] = v
	}
	for k, v := range s.slotApprovals {
		c.slotApprovals[k] = v
	}
	for k, v := range s.allowances {
		c.allowances[k] = v
	}
	return c
}

// InMemoryStore keeps the ledger in process memory. A mutex serializes
// transactions; Mutate stages every change on a copy of the state and swaps
// it in only when fn succeeds, so a failed operation leaves nothing behind.
type InMemoryStore struct {
	mu    sync.Mutex
	state *ledgerState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: newLedgerState()}
}

func (s *InMemoryStore) Mutate(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&memoryTx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *InMemoryStore) View(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reads go against the live state; the mutex keeps writers out and the
	// Tx write methods are never reached through well-behaved callers, but
	// hand out a clone anyway so a buggy one cannot corrupt the ledger.
	return fn(&memoryTx{state: s.state.clone()})
}

type memoryTx struct {
	state *ledgerState
}

func (t *memoryTx) NextTokenID() (id.TokenID, error) {
	next := t.state.nextID
	t.state.nextID++
	return next, nil
}

func (t *memoryTx) Insert(rec Record) error {
	if _, exists := t.state.records[rec.TokenID]; exists {
		return sentinel.ErrConflict
	}
	t.state.records[rec.TokenID] = rec
	return nil
}

func (t *memoryTx) Get(token id.TokenID) (Record, error) {
	rec, ok := t.state.records[token]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (t *memoryTx) Update(rec Record) error {
	if _, ok := t.state.records[rec.TokenID]; !ok {
		return sentinel.ErrNotFound
	}
	t.state.records[rec.TokenID] = rec
	return nil
}

func (t *memoryTx) Delete(token id.TokenID) error {
	if _, ok := t.state.records[token]; !ok {
		return sentinel.ErrNotFound
	}
	delete(t.state.records, token)
	delete(t.state.recordApprovals, token)
	for key := range t.state.allowances {
		if key.token == token {
			delete(t.state.allowances, key)
		}
	}
	return nil
}

func (t *memoryTx) ByDocument(doc id.DocumentID) ([]Record, error) {
	var out []Record
	for _, rec := range t.state.records {
		if rec.DocumentID == doc {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (t *memoryTx) BySlot(slot id.SlotID) ([]Record, error) {
	var out []Record
	for _, rec := range t.state.records {
		if rec.Slot == slot {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].TokenID < recs[j].TokenID })
}

func (t *memoryTx) Aggregate(slot id.SlotID) (SlotAggregate, error) {
	agg, ok := t.state.aggregates[slot]
	if !ok {
		return SlotAggregate{Slot: slot}, nil
	}
	return agg, nil
}

func (t *memoryTx) PutAggregate(agg SlotAggregate) error {
	t.state.aggregates[agg.Slot] = agg
	return nil
}

func (t *memoryTx) AddHolder(slot id.SlotID, holder id.PartyID) error {
	set, ok := t.state.holders[slot]
	if !ok {
		set = make(map[id.PartyID]bool)
		t.state.holders[slot] = set
	}
	set[holder] = true
	return nil
}

func (t *memoryTx) Holders(slot id.SlotID) ([]id.PartyID, error) {
	set := t.state.holders[slot]
	out := make([]id.PartyID, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (t *memoryTx) ValidCount(holder id.PartyID) (uint64, error) {
	return t.state.validCounts[holder], nil
}

func (t *memoryTx) AddValidCount(holder id.PartyID, delta int64) error {
	current := int64(t.state.validCounts[holder]) + delta
	if current < 0 {
		return sentinel.ErrInvalidState
	}
	t.state.validCounts[holder] = uint64(current)
	return nil
}

func (t *memoryTx) RecordApproval(token id.TokenID) (id.PartyID, error) {
	return t.state.recordApprovals[token], nil
}

func (t *memoryTx) SetRecordApproval(token id.TokenID, operator id.PartyID) error {
	if operator.IsNil() {
		delete(t.state.recordApprovals, token)
		return nil
	}
	t.state.recordApprovals[token] = operator
	return nil
}

func (t *memoryTx) SlotApproval(slot id.SlotID, owner, operator id.PartyID) (bool, error) {
	return t.state.slotApprovals[slotApprovalKey{slot: slot, owner: owner, operator: operator}], nil
}

func (t *memoryTx) SetSlotApproval(slot id.SlotID, owner, operator id.PartyID, approved bool) error {
	key := slotApprovalKey{slot: slot, owner: owner, operator: operator}
	if !approved {
		delete(t.state.slotApprovals, key)
		return nil
	}
	t.state.slotApprovals[key] = true
	return nil
}

func (t *memoryTx) Allowance(token id.TokenID, spender id.PartyID) (uint64, error) {
	return t.state.allowances[allowanceKey{token: token, spender: spender}], nil
}

func (t *memoryTx) SetAllowance(token id.TokenID, spender id.PartyID, amount uint64) error {
	key := allowanceKey{token: token, spender: spender}
	if amount == 0 {
		delete(t.state.allowances, key)
		return nil
	}
	t.state.allowances[key] = amount
	return nil
}
