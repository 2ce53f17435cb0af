package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemID uniquely identifies an item in the catalog.
type ItemID string

// ItemCode is the human-facing catalog code, e.g. MP003 or PF012.
type ItemCode string

// Unit is the storage unit family of an item.
type Unit int

const (
	UnitMass Unit = iota // stored in kilograms, displayed in grams
	UnitVolume           // stored in liters, displayed in milliliters
	UnitCount            // stored and displayed as discrete units
)

// String method for Unit enum
func (u Unit) String() string {
	switch u {
	case UnitMass:
		return "kg"
	case UnitVolume:
		return "L"
	case UnitCount:
		return "un"
	default:
		return "Unknown"
	}
}

// ParseUnit parses a storage unit name as written in catalog files.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "kg", "mass":
		return UnitMass, nil
	case "L", "l", "volume":
		return UnitVolume, nil
	case "un", "count", "unit":
		return UnitCount, nil
	default:
		return 0, fmt.Errorf("unknown unit: %s", s)
	}
}

// ItemKind distinguishes purchased raw materials from produced finished goods.
type ItemKind int

const (
	RawMaterial ItemKind = iota
	FinishedGood
)

// String method for ItemKind enum
func (k ItemKind) String() string {
	switch k {
	case RawMaterial:
		return "RawMaterial"
	case FinishedGood:
		return "FinishedGood"
	default:
		return "Unknown"
	}
}

// CodePrefix returns the catalog code prefix for the kind.
func (k ItemKind) CodePrefix() string {
	if k == FinishedGood {
		return "PF"
	}
	return "MP"
}

// Item represents a raw material or finished good in the catalog.
type Item struct {
	ID         ItemID
	Code       ItemCode
	Name       string
	Kind       ItemKind
	Unit       Unit
	Stock      float64 // current on-hand quantity, storage units
	MinStock   float64
	UnitCost   decimal.Decimal // purchase cost per storage unit (raw materials)
	SalePrice  decimal.Decimal // sale price per unit (finished goods)
	LossPct    float64
	CookFactor float64 // raw materials only; 1 = no yield change
}

// NewItem creates a validated Item.
func NewItem(id ItemID, code ItemCode, name string, kind ItemKind, unit Unit) (*Item, error) {
	if id == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if code == "" {
		return nil, fmt.Errorf("item code cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("item name cannot be empty")
	}

	return &Item{
		ID:         id,
		Code:       code,
		Name:       name,
		Kind:       kind,
		Unit:       unit,
		CookFactor: 1,
	}, nil
}
