package entities

import "fmt"

// RecipeID uniquely identifies a recipe.
type RecipeID string

// BOMLine represents a single ingredient line in a recipe's bill of materials.
type BOMLine struct {
	ItemID     ItemID
	Qty        float64  // quantity per produced unit, in the item's storage unit
	FCOverride *float64 // nil = use the item's own cook factor
	Position   int      // print/edit order, unique within the recipe
}

// NewBOMLine creates a validated BOMLine.
func NewBOMLine(itemID ItemID, qty float64, position int) (*BOMLine, error) {
	if itemID == "" {
		return nil, fmt.Errorf("bom line item id cannot be empty")
	}
	if qty <= 0 {
		return nil, fmt.Errorf("bom line quantity must be positive, got %g", qty)
	}
	if position <= 0 {
		return nil, fmt.Errorf("bom line position must be positive, got %d", position)
	}

	return &BOMLine{
		ItemID:   itemID,
		Qty:      qty,
		Position: position,
	}, nil
}

// Recipe owns the ordered bill of materials for one finished good.
// The yield is always one unit of the product.
type Recipe struct {
	ID        RecipeID
	ProductID ItemID // the finished good this recipe produces
	Lines     []BOMLine
	Method    string // free-text preparation method
	PhotoRef  string
}

// NewRecipe creates an empty recipe tied to a finished good.
func NewRecipe(id RecipeID, productID ItemID) (*Recipe, error) {
	if id == "" {
		return nil, fmt.Errorf("recipe id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("recipe product id cannot be empty")
	}

	return &Recipe{
		ID:        id,
		ProductID: productID,
		Lines:     []BOMLine{},
	}, nil
}

// LineAt returns the line occupying the given position, or nil.
func (r *Recipe) LineAt(position int) *BOMLine {
	for i := range r.Lines {
		if r.Lines[i].Position == position {
			return &r.Lines[i]
		}
	}
	return nil
}

// LineFor returns the line referencing the given item, or nil.
func (r *Recipe) LineFor(itemID ItemID) *BOMLine {
	for i := range r.Lines {
		if r.Lines[i].ItemID == itemID {
			return &r.Lines[i]
		}
	}
	return nil
}
