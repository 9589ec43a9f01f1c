package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "scrip/pkg/domain"
	"scrip/pkg/platform/sentinel"
)

// PostgresStore persists assignments in the registry_assignments table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, assignment Assignment) error {
	query := `
		INSERT INTO registry_assignments (document_id, issuer, variant, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		assignment.DocumentID.String(),
		assignment.Issuer.String(),
		string(assignment.Variant),
		assignment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, doc id.DocumentID) (Assignment, error) {
	query := `
		SELECT issuer, variant, created_at
		FROM registry_assignments
		WHERE document_id = $1
	`

	var (
		issuerRaw  string
		variantRaw string
		assignment Assignment
	)
	err := s.db.QueryRowContext(ctx, query, doc.String()).
		Scan(&issuerRaw, &variantRaw, &assignment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, sentinel.ErrNotFound
		}
		return Assignment{}, fmt.Errorf("find assignment: %w", err)
	}

	issuer, err := id.ParsePartyID(issuerRaw)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment issuer corrupt: %w", err)
	}
	variant, err := id.ParseVariant(variantRaw)
	if err != nil {
		return Assignment{}, fmt.Errorf("assignment variant corrupt: %w", err)
	}

	assignment.DocumentID = doc
	assignment.Issuer = issuer
	assignment.Variant = variant
	return assignment, nil
}
