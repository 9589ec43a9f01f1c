package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

// PostgresStore keeps the governance state in the single-row ledger_state
// table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	var (
		state     State
		schemaRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT paused, schema_id, updated_at FROM ledger_state WHERE id = 1`,
	).Scan(&state.Paused, &schemaRaw, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, sentinel.ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("load ledger state: %w", err)
	}

	schema, err := id.ParseSchemaID(schemaRaw)
	if err != nil {
		return State{}, fmt.Errorf("ledger state schema corrupt: %w", err)
	}
	state.SchemaID = schema
	return state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state State) error {
	query := `
		INSERT INTO ledger_state (id, paused, schema_id, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET paused = EXCLUDED.paused, schema_id = EXCLUDED.schema_id, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, state.Paused, state.SchemaID.String(), state.UpdatedAt); err != nil {
		return fmt.Errorf("save ledger state: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordUpgrade(ctx context.Context, upgrade Upgrade) error {
	query := `INSERT INTO upgrade_authorizations (version, authorized_at) VALUES ($1, $2)`
	if _, err := s.db.ExecContext(ctx, query, upgrade.Version, upgrade.AuthorizedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("record upgrade authorization: %w", err)
	}
	return nil
}
