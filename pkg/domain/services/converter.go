package services

import (
	"math"

	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// ToStorageUnit converts a user-facing display quantity (grams, milliliters,
// units) to the item's canonical storage quantity (kilograms, liters, units).
// Total function: non-finite input is treated as zero.
func ToStorageUnit(displayQty float64, unit entities.Unit) float64 {
	if !isFinite(displayQty) {
		return 0
	}
	switch unit {
	case entities.UnitMass, entities.UnitVolume:
		return displayQty / 1000
	default:
		return displayQty
	}
}

// ToDisplayUnit is the exact inverse scaling of ToStorageUnit.
func ToDisplayUnit(storageQty float64, unit entities.Unit) float64 {
	if !isFinite(storageQty) {
		return 0
	}
	switch unit {
	case entities.UnitMass, entities.UnitVolume:
		return storageQty * 1000
	default:
		return storageQty
	}
}

// EffectiveYieldFactor resolves the cook/yield factor for a BOM line: the
// line's override when present and usable, else the item's own factor, else 1.
// The factor only affects displayed cooked quantities, never storage math.
func EffectiveYieldFactor(line *entities.BOMLine, item *entities.Item) float64 {
	if line != nil && line.FCOverride != nil {
		if fc := *line.FCOverride; isFinite(fc) && fc > 0 {
			return fc
		}
	}
	if item != nil && isFinite(item.CookFactor) && item.CookFactor > 0 {
		return item.CookFactor
	}
	return 1
}

// CookedQuantity is the consumable quantity shown on labels and print
// documents: storage quantity scaled by the effective yield factor.
func CookedQuantity(storageQty float64, line *entities.BOMLine, item *entities.Item) float64 {
	if !isFinite(storageQty) {
		return 0
	}
	return storageQty * EffectiveYieldFactor(line, item)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
