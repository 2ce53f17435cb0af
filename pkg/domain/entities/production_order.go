package entities

import (
	"fmt"
	"time"
)

// ProductionStatus is the state of a production run.
type ProductionStatus int

const (
	ProductionIssued ProductionStatus = iota
	ProductionInProgress
	ProductionClosed
	ProductionCancelled
)

// String method for ProductionStatus enum
func (s ProductionStatus) String() string {
	switch s {
	case ProductionIssued:
		return "ISSUED"
	case ProductionInProgress:
		return "IN_PRODUCTION"
	case ProductionClosed:
		return "CLOSED"
	case ProductionCancelled:
		return "CANCELLED"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s ProductionStatus) Terminal() bool {
	return s == ProductionClosed || s == ProductionCancelled
}

// NormalizeProductionStatus maps stored status names, including legacy
// aliases, to canonical states. Applied once at the persistence boundary;
// transition logic only ever sees canonical values.
func NormalizeProductionStatus(raw string) (ProductionStatus, error) {
	switch raw {
	case "ISSUED", "HOLD", "READY":
		return ProductionIssued, nil
	case "IN_PRODUCTION":
		return ProductionInProgress, nil
	case "CLOSED", "EXECUTED":
		return ProductionClosed, nil
	case "CANCELLED":
		return ProductionCancelled, nil
	default:
		return 0, fmt.Errorf("unknown production status: %s", raw)
	}
}

// ConsumedIngredient is one entry of the stock-debit snapshot.
type ConsumedIngredient struct {
	ItemID   ItemID
	ItemCode ItemCode
	Qty      float64 // storage units
}

// ProductionOrder represents one production run of a single recipe.
type ProductionOrder struct {
	ID                string // internal identifier
	Number            int64  // sequential human-readable number
	CreatedAt         time.Time
	RecipeID          RecipeID
	ProductID         ItemID
	Quantity          int // finished-good units to produce, fixed at creation
	Status            ProductionStatus
	Note              string
	Consumed          []ConsumedIngredient // immutable once recorded
	Shortages         []ShortageLine       // last shortage snapshot that blocked a start
	LotNumber         int64                // assigned exactly once, at close
	ClosedAt          *time.Time
	LinkedPurchaseID  string // purchase order auto-generated to cover a shortage
	AllowInsufficient bool   // permit auto purchase order creation on shortage
	Archived          bool
}

// NewProductionOrder creates a validated ProductionOrder in the ISSUED state.
func NewProductionOrder(id string, number int64, recipeID RecipeID, productID ItemID, quantity int) (*ProductionOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("production order id cannot be empty")
	}
	if number <= 0 {
		return nil, fmt.Errorf("production order number must be positive, got %d", number)
	}
	if recipeID == "" {
		return nil, fmt.Errorf("production order recipe id cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity to produce must be positive, got %d", ErrInvalidQuantity, quantity)
	}

	return &ProductionOrder{
		ID:        id,
		Number:    number,
		CreatedAt: time.Now(),
		RecipeID:  recipeID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    ProductionIssued,
	}, nil
}

// CanTransition reports whether target is reachable from the current state.
func (o *ProductionOrder) CanTransition(target ProductionStatus) bool {
	switch o.Status {
	case ProductionIssued:
		return target == ProductionInProgress || target == ProductionCancelled
	case ProductionInProgress:
		return target == ProductionClosed || target == ProductionCancelled
	default:
		return false
	}
}
