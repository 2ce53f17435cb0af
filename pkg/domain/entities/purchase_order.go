package entities

import (
	"fmt"
	"time"
)

// PurchaseStatus is the state of a procurement batch.
type PurchaseStatus int

const (
	PurchaseOpen PurchaseStatus = iota
	PurchasePartial
	PurchaseReceived
	PurchaseCancelled
	PurchaseClosed
)

// String method for PurchaseStatus enum
func (s PurchaseStatus) String() string {
	switch s {
	case PurchaseOpen:
		return "OPEN"
	case PurchasePartial:
		return "PARTIAL"
	case PurchaseReceived:
		return "RECEIVED"
	case PurchaseCancelled:
		return "CANCELLED"
	case PurchaseClosed:
		return "CLOSED"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further receiving is possible.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseReceived || s == PurchaseCancelled || s == PurchaseClosed
}

// NormalizePurchaseStatus maps stored status names, including the legacy
// HOLD display alias, to canonical states.
func NormalizePurchaseStatus(raw string) (PurchaseStatus, error) {
	switch raw {
	case "OPEN", "HOLD":
		return PurchaseOpen, nil
	case "PARTIAL":
		return PurchasePartial, nil
	case "RECEIVED":
		return PurchaseReceived, nil
	case "CANCELLED":
		return PurchaseCancelled, nil
	case "CLOSED":
		return PurchaseClosed, nil
	default:
		return 0, fmt.Errorf("unknown purchase status: %s", raw)
	}
}

// PurchaseLine is one ordered raw material on a purchase order.
type PurchaseLine struct {
	ItemID      ItemID
	ItemCode    ItemCode
	QtyOrdered  float64 // immutable baseline
	QtyAdjusted float64 // mutable delta, may be negative
	QtyReceived float64 // monotonically non-decreasing
}

// Final is the quantity the order currently commits to: ordered + adjustment.
func (l *PurchaseLine) Final() float64 {
	return l.QtyOrdered + l.QtyAdjusted
}

// Outstanding is how much is still expected on this line.
func (l *PurchaseLine) Outstanding() float64 {
	out := l.Final() - l.QtyReceived
	if out < 0 {
		return 0
	}
	return out
}

// NewPurchaseLine creates a validated PurchaseLine.
func NewPurchaseLine(itemID ItemID, itemCode ItemCode, qtyOrdered float64) (*PurchaseLine, error) {
	if itemID == "" {
		return nil, fmt.Errorf("purchase line item id cannot be empty")
	}
	if qtyOrdered <= 0 {
		return nil, fmt.Errorf("%w: ordered quantity must be positive, got %g", ErrInvalidQuantity, qtyOrdered)
	}

	return &PurchaseLine{
		ItemID:     itemID,
		ItemCode:   itemCode,
		QtyOrdered: qtyOrdered,
	}, nil
}

// PurchaseOrder represents one procurement batch.
type PurchaseOrder struct {
	ID                 string
	Number             int64
	CreatedAt          time.Time
	Status             PurchaseStatus
	Note               string
	SourceProductionID string // production order that spawned this, if any
	Lines              []PurchaseLine
	Archived           bool
}

// NewPurchaseOrder creates a validated PurchaseOrder in the OPEN state.
func NewPurchaseOrder(id string, number int64, lines []PurchaseLine) (*PurchaseOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("purchase order id cannot be empty")
	}
	if number <= 0 {
		return nil, fmt.Errorf("purchase order number must be positive, got %d", number)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("purchase order must have at least one line")
	}

	return &PurchaseOrder{
		ID:        id,
		Number:    number,
		CreatedAt: time.Now(),
		Status:    PurchaseOpen,
		Lines:     lines,
	}, nil
}

// LineFor returns the line referencing the given item, or nil.
func (o *PurchaseOrder) LineFor(itemID ItemID) *PurchaseLine {
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			return &o.Lines[i]
		}
	}
	return nil
}

// RecomputeStatus derives OPEN/PARTIAL/RECEIVED from line progress.
// Cancelled and explicitly closed orders are left untouched.
func (o *PurchaseOrder) RecomputeStatus() {
	if o.Status == PurchaseCancelled || o.Status == PurchaseClosed {
		return
	}

	allDone := true
	anyProgress := false
	for i := range o.Lines {
		l := &o.Lines[i]
		if l.QtyReceived > 0 {
			anyProgress = true
		}
		if l.QtyReceived+qtyEpsilon < l.Final() {
			allDone = false
		}
	}

	switch {
	case allDone:
		o.Status = PurchaseReceived
	case anyProgress:
		o.Status = PurchasePartial
	default:
		o.Status = PurchaseOpen
	}
}

// qtyEpsilon absorbs floating-point noise in quantity comparisons.
const qtyEpsilon = 1e-9
