package sqlite

import (
	"context"
	"fmt"

	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// SequenceRepository hands out monotonically increasing numbers per kind,
// persisted so numbers survive restarts and are never reused.
type SequenceRepository struct {
	store *Store
}

// NewSequenceRepository wraps the store.
func NewSequenceRepository(store *Store) *SequenceRepository {
	return &SequenceRepository{store: store}
}

// Verify interface compliance
var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// Seed sets the last used number for a kind, keeping whichever is higher.
func (r *SequenceRepository) Seed(ctx context.Context, kind repositories.SequenceKind, last int64) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO sequences (kind, last) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET last = MAX(last, excluded.last)`,
		string(kind), last)
	if err != nil {
		return fmt.Errorf("failed to seed sequence %s: %w", kind, err)
	}
	return nil
}

// Next returns the next number in the sequence. The upsert and the read-back
// run as a single statement, so concurrent callers get distinct numbers.
func (r *SequenceRepository) Next(ctx context.Context, kind repositories.SequenceKind) (int64, error) {
	var next int64
	err := r.store.db.QueryRowContext(ctx, `
		INSERT INTO sequences (kind, last) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET last = last + 1
		RETURNING last`,
		string(kind)).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", kind, err)
	}
	return next, nil
}
