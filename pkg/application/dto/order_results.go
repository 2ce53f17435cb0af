package dto

import "github.com/lbatista/fabrica/pkg/domain/entities"

// TransitionResult reports the outcome of a production order transition.
// Shortages is populated when an ISSUED -> IN_PRODUCTION move was refused.
type TransitionResult struct {
	Order     *entities.ProductionOrder
	Shortages []entities.ShortageLine
	// FollowUpPurchase is the purchase order auto-generated to cover the
	// shortage, when the order permits it.
	FollowUpPurchase *entities.PurchaseOrder
}

// MissingQuantity is an outstanding remainder on one purchase order line.
type MissingQuantity struct {
	ItemID   entities.ItemID
	ItemCode entities.ItemCode
	Qty      float64
}

// ReceiptResult reports the outcome of receiving purchase order lines.
type ReceiptResult struct {
	Order *entities.PurchaseOrder
	// Missing lists per-line shortfalls of this receiving step; the caller
	// may redirect them into a follow-up order.
	Missing []MissingQuantity
}

// CommitResult reports the orders created by a batch commit.
type CommitResult struct {
	Orders        []*entities.ProductionOrder
	PurchaseOrder *entities.PurchaseOrder // consolidated, nil when nothing was short
}
