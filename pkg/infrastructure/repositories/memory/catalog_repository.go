package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// CatalogRepository provides in-memory item and recipe storage. It also
// implements StockRepository: stock lives on the item record and every
// mutation runs under the repository lock, which gives the read-check-write
// serialization the state machines rely on.
type CatalogRepository struct {
	mu      sync.RWMutex
	items   map[entities.ItemID]entities.Item
	recipes map[entities.RecipeID]entities.Recipe
}

// NewCatalogRepository creates an empty in-memory catalog.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		items:   make(map[entities.ItemID]entities.Item),
		recipes: make(map[entities.RecipeID]entities.Recipe),
	}
}

// Verify interface compliance
var (
	_ repositories.CatalogRepository = (*CatalogRepository)(nil)
	_ repositories.StockRepository   = (*CatalogRepository)(nil)
)

// LoadItems loads items into the repository.
func (r *CatalogRepository) LoadItems(items []*entities.Item) error {
	for _, item := range items {
		if err := r.SaveItem(context.Background(), item); err != nil {
			return err
		}
	}
	return nil
}

// LoadRecipes loads recipes into the repository.
func (r *CatalogRepository) LoadRecipes(recipes []*entities.Recipe) error {
	for _, recipe := range recipes {
		if err := r.SaveRecipe(context.Background(), recipe); err != nil {
			return err
		}
	}
	return nil
}

// GetItem returns a copy of the item.
func (r *CatalogRepository) GetItem(_ context.Context, id entities.ItemID) (*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return &item, nil
}

// GetItemByCode returns a copy of the item with the given catalog code.
func (r *CatalogRepository) GetItemByCode(_ context.Context, code entities.ItemCode) (*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Code == code {
			item := item
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: item code %s", entities.ErrNotFound, code)
}

// AllItems returns copies of every item.
func (r *CatalogRepository) AllItems(_ context.Context) ([]*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*entities.Item, 0, len(r.items))
	for _, item := range r.items {
		item := item
		items = append(items, &item)
	}
	return items, nil
}

// SaveItem stores the item, replacing any previous version.
func (r *CatalogRepository) SaveItem(_ context.Context, item *entities.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = *item
	return nil
}

// DeleteItem removes the item. Its code number becomes reusable.
func (r *CatalogRepository) DeleteItem(_ context.Context, id entities.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	delete(r.items, id)
	return nil
}

// GetRecipe returns a copy of the recipe with its lines.
func (r *CatalogRepository) GetRecipe(_ context.Context, id entities.RecipeID) (*entities.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recipe, exists := r.recipes[id]
	if !exists {
		return nil, fmt.Errorf("%w: recipe %s", entities.ErrNotFound, id)
	}
	return copyRecipe(recipe), nil
}

// RecipeForProduct returns the recipe producing the given finished good.
func (r *CatalogRepository) RecipeForProduct(_ context.Context, productID entities.ItemID) (*entities.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, recipe := range r.recipes {
		if recipe.ProductID == productID {
			return copyRecipe(recipe), nil
		}
	}
	return nil, fmt.Errorf("%w: recipe for product %s", entities.ErrNotFound, productID)
}

// SaveRecipe stores the recipe, replacing any previous version.
func (r *CatalogRepository) SaveRecipe(_ context.Context, recipe *entities.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recipes[recipe.ID] = *copyRecipe(*recipe)
	return nil
}

// DeleteRecipe clears a finished good's BOM without touching the item.
func (r *CatalogRepository) DeleteRecipe(_ context.Context, id entities.RecipeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recipes[id]; !exists {
		return fmt.Errorf("%w: recipe %s", entities.ErrNotFound, id)
	}
	delete(r.recipes, id)
	return nil
}

// CurrentStock returns the item's on-hand quantity.
func (r *CatalogRepository) CurrentStock(_ context.Context, id entities.ItemID) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return 0, fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return item.Stock, nil
}

// Credit increases the item's stock by qty.
func (r *CatalogRepository) Credit(_ context.Context, id entities.ItemID, qty float64) error {
	if qty < 0 {
		return fmt.Errorf("%w: credit quantity must not be negative, got %g", entities.ErrInvalidQuantity, qty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[id]
	if !exists {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	item.Stock += qty
	r.items[id] = item
	return nil
}

// Debit decreases the item's stock by qty, refusing to go negative.
func (r *CatalogRepository) Debit(_ context.Context, id entities.ItemID, qty float64) error {
	if qty < 0 {
		return fmt.Errorf("%w: debit quantity must not be negative, got %g", entities.ErrInvalidQuantity, qty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.debitLocked(id, qty)
}

// DebitBatch checks every movement under one lock before applying any of
// them, so a partial debit can never be observed.
func (r *CatalogRepository) DebitBatch(_ context.Context, movements []repositories.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range movements {
		item, exists := r.items[m.ItemID]
		if !exists {
			return fmt.Errorf("%w: item %s", entities.ErrNotFound, m.ItemID)
		}
		if item.Stock+stockEpsilon < m.Qty {
			return fmt.Errorf("%w: item %s has %g, need %g", entities.ErrInsufficientStock, item.Code, item.Stock, m.Qty)
		}
	}

	for _, m := range movements {
		if err := r.debitLocked(m.ItemID, m.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (r *CatalogRepository) debitLocked(id entities.ItemID, qty float64) error {
	item, exists := r.items[id]
	if !exists {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	if item.Stock+stockEpsilon < qty {
		return fmt.Errorf("%w: item %s has %g, need %g", entities.ErrInsufficientStock, item.Code, item.Stock, qty)
	}
	item.Stock -= qty
	r.items[id] = item
	return nil
}

func copyRecipe(recipe entities.Recipe) *entities.Recipe {
	lines := make([]entities.BOMLine, len(recipe.Lines))
	copy(lines, recipe.Lines)
	recipe.Lines = lines
	return &recipe
}

const stockEpsilon = 1e-9
