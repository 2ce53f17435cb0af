package repositories

import (
	"context"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	IncludeArchived bool
}

// OrderRepository persists production and purchase orders.
type OrderRepository interface {
	SaveProductionOrder(ctx context.Context, order *entities.ProductionOrder) error
	GetProductionOrder(ctx context.Context, id string) (*entities.ProductionOrder, error)
	ListProductionOrders(ctx context.Context, filter OrderFilter) ([]*entities.ProductionOrder, error)
	DeleteProductionOrder(ctx context.Context, id string) error

	SavePurchaseOrder(ctx context.Context, order *entities.PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id string) (*entities.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter OrderFilter) ([]*entities.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, id string) error
}

// SequenceKind names a monotonically increasing number sequence.
type SequenceKind string

const (
	SeqProduction SequenceKind = "production"
	SeqPurchase   SequenceKind = "purchase"
	SeqSales      SequenceKind = "sales"
	SeqLot        SequenceKind = "lot"
)

// SequenceRepository hands out order and lot numbers. Numbers are never
// reused, even across deletions.
type SequenceRepository interface {
	Next(ctx context.Context, kind SequenceKind) (int64, error)
}
