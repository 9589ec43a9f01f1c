package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one additive schema step. Migrations never alter or drop what
// an earlier version created; evolution happens by adding tables, columns and
// indexes in new versions.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "registry assignments",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS registry_assignments (
				document_id UUID PRIMARY KEY,
				issuer      UUID NOT NULL,
				variant     TEXT NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "token records and slot side tables",
		stmts: []string{
			// A counter row instead of a sequence: allocation happens inside
			// the ledger transaction, so an aborted transaction leaves no gap
			// and token ids stay dense from 0.
			`CREATE TABLE IF NOT EXISTS token_counter (
				id      SMALLINT PRIMARY KEY CHECK (id = 0),
				next_id BIGINT NOT NULL
			)`,
			`INSERT INTO token_counter (id, next_id) VALUES (0, 0) ON CONFLICT (id) DO NOTHING`,
			`CREATE TABLE IF NOT EXISTS token_records (
				token_id     BIGINT PRIMARY KEY,
				document_id  UUID NOT NULL,
				slot         BIGINT NOT NULL,
				value        BIGINT NOT NULL,
				reserved_for UUID,
				owner        UUID,
				claimed      BOOLEAN NOT NULL DEFAULT FALSE,
				valid        BOOLEAN NOT NULL DEFAULT FALSE,
				revoked_at   TIMESTAMPTZ,
				delegate     UUID,
				delegate_exp TIMESTAMPTZ,
				label        TEXT NOT NULL DEFAULT '',
				created_at   TIMESTAMPTZ NOT NULL,
				claimed_at   TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS token_records_document_idx ON token_records (document_id)`,
			`CREATE INDEX IF NOT EXISTS token_records_slot_idx ON token_records (slot)`,
			`CREATE TABLE IF NOT EXISTS slot_aggregates (
				slot           BIGINT PRIMARY KEY,
				total_reserved BIGINT NOT NULL DEFAULT 0,
				total_minted   BIGINT NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS slot_holders (
				slot   BIGINT NOT NULL,
				holder UUID NOT NULL,
				PRIMARY KEY (slot, holder)
			)`,
			`CREATE TABLE IF NOT EXISTS holder_valid_counts (
				holder      UUID PRIMARY KEY,
				valid_count BIGINT NOT NULL DEFAULT 0 CHECK (valid_count >= 0)
			)`,
		},
	},
	{
		version: 3,
		name:    "approvals and allowances",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS record_approvals (
				token_id BIGINT PRIMARY KEY,
				operator UUID NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS slot_approvals (
				slot     BIGINT NOT NULL,
				owner    UUID NOT NULL,
				operator UUID NOT NULL,
				PRIMARY KEY (slot, owner, operator)
			)`,
			`CREATE TABLE IF NOT EXISTS value_allowances (
				token_id BIGINT NOT NULL,
				spender  UUID NOT NULL,
				amount   BIGINT NOT NULL,
				PRIMARY KEY (token_id, spender)
			)`,
		},
	},
	{
		version: 4,
		name:    "ledger admin state",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS ledger_state (
				id         SMALLINT PRIMARY KEY CHECK (id = 1),
				paused     BOOLEAN NOT NULL DEFAULT FALSE,
				schema_id  UUID NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS upgrade_authorizations (
				version       TEXT PRIMARY KEY,
				authorized_at TIMESTAMPTZ NOT NULL
			)`,
		},
	},
}

// Migrate applies pending migrations in version order. Each migration runs in
// its own transaction and is recorded in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := isApplied(ctx, db, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		logger.InfoContext(ctx, "applied migration",
			"version", m.version,
			"name", m.name,
		)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return n > 0, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
	); err != nil {
		return err
	}
	return tx.Commit()
}
