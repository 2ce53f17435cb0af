package repositories

import (
	"context"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// StockMovement is one debit or credit applied to an item's on-hand quantity.
type StockMovement struct {
	ItemID entities.ItemID
	Qty    float64 // storage units, always positive
}

// StockRepository mutates item stock with read-check-write serialization.
// Implementations must guarantee that concurrent movements on the same item
// never lose updates (mutex or conditional UPDATE).
type StockRepository interface {
	CurrentStock(ctx context.Context, id entities.ItemID) (float64, error)
	// Credit increases stock by qty.
	Credit(ctx context.Context, id entities.ItemID, qty float64) error
	// Debit decreases stock by qty; fails with entities.ErrInsufficientStock
	// when on-hand quantity (plus epsilon) does not cover it.
	Debit(ctx context.Context, id entities.ItemID, qty float64) error
	// DebitBatch applies all movements or none of them.
	DebitBatch(ctx context.Context, movements []StockMovement) error
}
