package dto

import (
	"github.com/shopspring/decimal"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// Selection is one (recipe, quantity) pair chosen for production.
type Selection struct {
	RecipeID entities.RecipeID
	Quantity int // finished-good units, positive
}

// SimulationResult is the consolidated requirement/shortage table for a set
// of selections. Read-only with respect to stock; repeatable.
type SimulationResult struct {
	Requirements []entities.Requirement
	Shortages    []entities.ShortageLine
	// EstimatedPurchaseCost is the sum over shortages of short quantity times
	// the item's unit cost.
	EstimatedPurchaseCost decimal.Decimal
}

// HasShortage reports whether any line is short.
func (r *SimulationResult) HasShortage() bool {
	for _, s := range r.Shortages {
		if !s.OK {
			return true
		}
	}
	return false
}

// ShortLines returns only the lines with a positive shortage.
func (r *SimulationResult) ShortLines() []entities.ShortageLine {
	var short []entities.ShortageLine
	for _, s := range r.Shortages {
		if !s.OK {
			short = append(short, s)
		}
	}
	return short
}
