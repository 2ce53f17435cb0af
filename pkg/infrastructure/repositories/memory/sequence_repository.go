package memory

import (
	"context"
	"sync"

	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// SequenceRepository hands out monotonically increasing numbers per kind.
// Numbers are never reused, even after order deletion.
type SequenceRepository struct {
	mu   sync.Mutex
	last map[repositories.SequenceKind]int64
}

// NewSequenceRepository creates sequences starting at 1.
func NewSequenceRepository() *SequenceRepository {
	return &SequenceRepository{last: make(map[repositories.SequenceKind]int64)}
}

// Verify interface compliance
var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// Seed sets the last used number for a kind, e.g. when resuming a scenario.
func (r *SequenceRepository) Seed(kind repositories.SequenceKind, last int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last > r.last[kind] {
		r.last[kind] = last
	}
}

// Next returns the next number in the sequence.
func (r *SequenceRepository) Next(_ context.Context, kind repositories.SequenceKind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last[kind]++
	return r.last[kind], nil
}
