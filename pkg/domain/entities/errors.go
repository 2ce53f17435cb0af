package entities

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrBelowReceivedQuantity = errors.New("final quantity below received quantity")
	ErrZeroFinalQuantity     = errors.New("final quantity must be positive")
	ErrPositionConflict      = errors.New("position already occupied")
	ErrCommitLocked          = errors.New("batch already committed, clear the selection first")
	ErrNotFound              = errors.New("not found")
)

// InsufficientStockError carries the shortage list that blocked a transition.
type InsufficientStockError struct {
	Shortages []ShortageLine
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortages))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidTransitionError reports the refused state change.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
