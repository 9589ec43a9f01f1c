package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

// ledgerLockKey is the advisory-lock key every mutating transaction takes.
// One key for the whole ledger gives the global serialization the lifecycle
// depends on: two conflicting claims cannot interleave, the first to commit
// wins and the second observes its effects.
const ledgerLockKey = 0x5c81 // "scrip ledger"

// PostgresStore persists the token arena and its side tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Mutate(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("acquire ledger lock: %w", err)
	}

	if err := fn(&postgresTx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin ledger read: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	return fn(&postgresTx{ctx: ctx, tx: sqlTx})
}

// postgresTx scopes Tx operations to one database transaction. It captures
// the Mutate/View context; a Tx never outlives the call that produced it.
type postgresTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *postgresTx) NextTokenID() (id.TokenID, error) {
	var next uint64
	err := t.tx.QueryRowContext(t.ctx,
		`UPDATE token_counter SET next_id = next_id + 1 WHERE id = 0 RETURNING next_id - 1`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate token id: %w", err)
	}
	return id.TokenID(next), nil
}

const recordColumns = `token_id, document_id, slot, value, reserved_for, owner,
	claimed, valid, revoked_at, delegate, delegate_exp, label, created_at, claimed_at`

func (t *postgresTx) Insert(rec Record) error {
	query := `
		INSERT INTO token_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := t.tx.ExecContext(t.ctx, query,
		uint64(rec.TokenID),
		rec.DocumentID.String(),
		uint64(rec.Slot),
		rec.Value,
		nullParty(rec.ReservedFor),
		nullParty(rec.Owner),
		rec.Claimed,
		rec.Valid,
		nullTime(rec.RevokedAt),
		nullParty(rec.Delegate),
		nullTime(rec.DelegateExp),
		rec.Label,
		rec.CreatedAt,
		nullTime(rec.ClaimedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert record %d: %w", rec.TokenID, err)
	}
	return nil
}

func (t *postgresTx) Get(token id.TokenID) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM token_records WHERE token_id = $1`
	return scanRecord(t.tx.QueryRowContext(t.ctx, query, uint64(token)))
}

func (t *postgresTx) Update(rec Record) error {
	query := `
		UPDATE token_records
		SET slot = $2, value = $3, reserved_for = $4, owner = $5, claimed = $6,
		    valid = $7, revoked_at = $8, delegate = $9, delegate_exp = $10,
		    label = $11, claimed_at = $12
		WHERE token_id = $1
	`
	res, err := t.tx.ExecContext(t.ctx, query,
		uint64(rec.TokenID),
		uint64(rec.Slot),
		rec.Value,
		nullParty(rec.ReservedFor),
		nullParty(rec.Owner),
		rec.Claimed,
		rec.Valid,
		nullTime(rec.RevokedAt),
		nullParty(rec.Delegate),
		nullTime(rec.DelegateExp),
		rec.Label,
		nullTime(rec.ClaimedAt),
	)
	if err != nil {
		return fmt.Errorf("update record %d: %w", rec.TokenID, err)
	}
	return requireRow(res)
}

func (t *postgresTx) Delete(token id.TokenID) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM token_records WHERE token_id = $1`, uint64(token))
	if err != nil {
		return fmt.Errorf("delete record %d: %w", token, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM record_approvals WHERE token_id = $1`, uint64(token)); err != nil {
		return fmt.Errorf("delete record approvals %d: %w", token, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM value_allowances WHERE token_id = $1`, uint64(token)); err != nil {
		return fmt.Errorf("delete record allowances %d: %w", token, err)
	}
	return nil
}

func (t *postgresTx) ByDocument(doc id.DocumentID) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM token_records WHERE document_id = $1 ORDER BY token_id`
	return t.queryRecords(query, doc.String())
}

func (t *postgresTx) BySlot(slot id.SlotID) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM token_records WHERE slot = $1 ORDER BY token_id`
	return t.queryRecords(query, uint64(slot))
}

func (t *postgresTx) queryRecords(query string, arg any) ([]Record, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *postgresTx) Aggregate(slot id.SlotID) (SlotAggregate, error) {
	agg := SlotAggregate{Slot: slot}
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT total_reserved, total_minted FROM slot_aggregates WHERE slot = $1`,
		uint64(slot),
	).Scan(&agg.TotalReserved, &agg.TotalMinted)
	if errors.Is(err, sql.ErrNoRows) {
		return agg, nil
	}
	if err != nil {
		return SlotAggregate{}, fmt.Errorf("read slot aggregate %d: %w", slot, err)
	}
	return agg, nil
}

func (t *postgresTx) PutAggregate(agg SlotAggregate) error {
	query := `
		INSERT INTO slot_aggregates (slot, total_reserved, total_minted)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE
		SET total_reserved = EXCLUDED.total_reserved, total_minted = EXCLUDED.total_minted
	`
	if _, err := t.tx.ExecContext(t.ctx, query, uint64(agg.Slot), agg.TotalReserved, agg.TotalMinted); err != nil {
		return fmt.Errorf("write slot aggregate %d: %w", agg.Slot, err)
	}
	return nil
}

func (t *postgresTx) AddHolder(slot id.SlotID, holder id.PartyID) error {
	query := `INSERT INTO slot_holders (slot, holder) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := t.tx.ExecContext(t.ctx, query, uint64(slot), holder.String()); err != nil {
		return fmt.Errorf("add slot holder: %w", err)
	}
	return nil
}

func (t *postgresTx) Holders(slot id.SlotID) ([]id.PartyID, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT holder FROM slot_holders WHERE slot = $1 ORDER BY holder`, uint64(slot))
	if err != nil {
		return nil, fmt.Errorf("list slot holders: %w", err)
	}
	defer rows.Close()

	var out []id.PartyID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		holder, err := id.ParsePartyID(raw)
		if err != nil {
			return nil, fmt.Errorf("slot holder corrupt: %w", err)
		}
		out = append(out, holder)
	}
	return out, rows.Err()
}

func (t *postgresTx) ValidCount(holder id.PartyID) (uint64, error) {
	var count uint64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT valid_count FROM holder_valid_counts WHERE holder = $1`, holder.String(),
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read valid count: %w", err)
	}
	return count, nil
}

func (t *postgresTx) AddValidCount(holder id.PartyID, delta int64) error {
	query := `
		INSERT INTO holder_valid_counts (holder, valid_count)
		VALUES ($1, $2)
		ON CONFLICT (holder) DO UPDATE
		SET valid_count = holder_valid_counts.valid_count + $2
	`
	if _, err := t.tx.ExecContext(t.ctx, query, holder.String(), delta); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation" {
			return sentinel.ErrInvalidState
		}
		return fmt.Errorf("adjust valid count: %w", err)
	}
	return nil
}

func (t *postgresTx) RecordApproval(token id.TokenID) (id.PartyID, error) {
	var raw string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT operator FROM record_approvals WHERE token_id = $1`, uint64(token),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return id.PartyID{}, nil
	}
	if err != nil {
		return id.PartyID{}, fmt.Errorf("read record approval: %w", err)
	}
	operator, err := id.ParsePartyID(raw)
	if err != nil {
		return id.PartyID{}, fmt.Errorf("record approval corrupt: %w", err)
	}
	return operator, nil
}

func (t *postgresTx) SetRecordApproval(token id.TokenID, operator id.PartyID) error {
	if operator.IsNil() {
		if _, err := t.tx.ExecContext(t.ctx,
			`DELETE FROM record_approvals WHERE token_id = $1`, uint64(token)); err != nil {
			return fmt.Errorf("clear record approval: %w", err)
		}
		return nil
	}
	query := `
		INSERT INTO record_approvals (token_id, operator) VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE SET operator = EXCLUDED.operator
	`
	if _, err := t.tx.ExecContext(t.ctx, query, uint64(token), operator.String()); err != nil {
		return fmt.Errorf("set record approval: %w", err)
	}
	return nil
}

func (t *postgresTx) SlotApproval(slot id.SlotID, owner, operator id.PartyID) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT EXISTS (SELECT 1 FROM slot_approvals WHERE slot = $1 AND owner = $2 AND operator = $3)`,
		uint64(slot), owner.String(), operator.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("read slot approval: %w", err)
	}
	return exists, nil
}

func (t *postgresTx) SetSlotApproval(slot id.SlotID, owner, operator id.PartyID, approved bool) error {
	if !approved {
		_, err := t.tx.ExecContext(t.ctx,
			`DELETE FROM slot_approvals WHERE slot = $1 AND owner = $2 AND operator = $3`,
			uint64(slot), owner.String(), operator.String())
		if err != nil {
			return fmt.Errorf("clear slot approval: %w", err)
		}
		return nil
	}
	query := `
		INSERT INTO slot_approvals (slot, owner, operator) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	if _, err := t.tx.ExecContext(t.ctx, query, uint64(slot), owner.String(), operator.String()); err != nil {
		return fmt.Errorf("set slot approval: %w", err)
	}
	return nil
}

func (t *postgresTx) Allowance(token id.TokenID, spender id.PartyID) (uint64, error) {
	var amount uint64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount FROM value_allowances WHERE token_id = $1 AND spender = $2`,
		uint64(token), spender.String(),
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read allowance: %w", err)
	}
	return amount, nil
}

func (t *postgresTx) SetAllowance(token id.TokenID, spender id.PartyID, amount uint64) error {
	if amount == 0 {
		_, err := t.tx.ExecContext(t.ctx,
			`DELETE FROM value_allowances WHERE token_id = $1 AND spender = $2`,
			uint64(token), spender.String())
		if err != nil {
			return fmt.Errorf("clear allowance: %w", err)
		}
		return nil
	}
	query := `
		INSERT INTO value_allowances (token_id, spender, amount) VALUES ($1, $2, $3)
		ON CONFLICT (token_id, spender) DO UPDATE SET amount = EXCLUDED.amount
	`
	if _, err := t.tx.ExecContext(t.ctx, query, uint64(token), spender.String(), amount); err != nil {
		return fmt.Errorf("set allowance: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec                               Record
		tokenID, slot                     uint64
		docRaw                            string
		reservedFor, owner, delegate      sql.NullString
		revokedAt, delegateExp, claimedAt sql.NullTime
	)
	err := row.Scan(
		&tokenID, &docRaw, &slot, &rec.Value, &reservedFor, &owner,
		&rec.Claimed, &rec.Valid, &revokedAt, &delegate, &delegateExp,
		&rec.Label, &rec.CreatedAt, &claimedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.TokenID = id.TokenID(tokenID)
	rec.Slot = id.SlotID(slot)

	doc, err := id.ParseDocumentID(docRaw)
	if err != nil {
		return Record{}, fmt.Errorf("record document corrupt: %w", err)
	}
	rec.DocumentID = doc

	if rec.ReservedFor, err = parseNullParty(reservedFor); err != nil {
		return Record{}, fmt.Errorf("record reserved_for corrupt: %w", err)
	}
	if rec.Owner, err = parseNullParty(owner); err != nil {
		return Record{}, fmt.Errorf("record owner corrupt: %w", err)
	}
	if rec.Delegate, err = parseNullParty(delegate); err != nil {
		return Record{}, fmt.Errorf("record delegate corrupt: %w", err)
	}
	if revokedAt.Valid {
		rec.RevokedAt = revokedAt.Time
	}
	if delegateExp.Valid {
		rec.DelegateExp = delegateExp.Time
	}
	if claimedAt.Valid {
		rec.ClaimedAt = claimedAt.Time
	}
	return rec, nil
}

func parseNullParty(v sql.NullString) (id.PartyID, error) {
	if !v.Valid || v.String == "" {
		return id.PartyID{}, nil
	}
	return id.ParsePartyID(v.String)
}

func nullParty(p id.PartyID) any {
	if p.IsNil() {
		return nil
	}
	return p.String()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
