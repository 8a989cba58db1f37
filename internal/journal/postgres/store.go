package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"solana-usdc-relay/internal/journal"
)

//go:embed schema.sql
var schemaSQL string

// Store implements journal.Journal using PostgreSQL.
type Store struct {
	pool *Pool
}

// NewStore creates a journal store and ensures its schema exists.
// The schema statement is idempotent.
func NewStore(ctx context.Context, pool *Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Compile-time interface check.
var _ journal.Journal = (*Store)(nil)

// Record inserts a journal entry.
func (s *Store) Record(ctx context.Context, e *journal.Entry) error {
	query := `
		INSERT INTO transfer_journal (signature, recipient, amount, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Amount travels as int64: Postgres has no unsigned type, and SPL
	// amounts fit until an asset mints more than 2^63 base units.
	_, err := s.pool.Exec(ctx, query,
		e.Signature, e.Recipient, int64(e.Amount), e.Outcome, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}
