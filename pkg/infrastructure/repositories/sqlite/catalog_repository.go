package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// CatalogRepository provides SQLite-backed item and recipe storage. It also
// implements StockRepository: debits run as conditional updates so a
// concurrent writer can never drive stock negative.
type CatalogRepository struct {
	store *Store
}

// NewCatalogRepository wraps the store.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

// Verify interface compliance
var (
	_ repositories.CatalogRepository = (*CatalogRepository)(nil)
	_ repositories.StockRepository   = (*CatalogRepository)(nil)
)

const itemColumns = "id, code, name, kind, unit, stock, min_stock, unit_cost, sale_price, loss_pct, cook_factor"

func scanItem(row interface{ Scan(...any) error }) (*entities.Item, error) {
	var (
		item      entities.Item
		unitCost  string
		salePrice string
	)
	err := row.Scan(&item.ID, &item.Code, &item.Name, &item.Kind, &item.Unit,
		&item.Stock, &item.MinStock, &unitCost, &salePrice, &item.LossPct, &item.CookFactor)
	if err != nil {
		return nil, err
	}
	if item.UnitCost, err = decimal.NewFromString(unitCost); err != nil {
		return nil, fmt.Errorf("corrupt unit cost for item %s: %w", item.ID, err)
	}
	if item.SalePrice, err = decimal.NewFromString(salePrice); err != nil {
		return nil, fmt.Errorf("corrupt sale price for item %s: %w", item.ID, err)
	}
	return &item, nil
}

// GetItem returns the item by internal id.
func (r *CatalogRepository) GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return item, err
}

// GetItemByCode returns the item with the given catalog code.
func (r *CatalogRepository) GetItemByCode(ctx context.Context, code entities.ItemCode) (*entities.Item, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE code = ?", code)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item code %s", entities.ErrNotFound, code)
	}
	return item, err
}

// AllItems returns every item ordered by catalog code.
func (r *CatalogRepository) AllItems(ctx context.Context) ([]*entities.Item, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*entities.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveItem stores the item, replacing any previous version.
func (r *CatalogRepository) SaveItem(ctx context.Context, item *entities.Item) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, name = excluded.name, kind = excluded.kind,
			unit = excluded.unit, stock = excluded.stock, min_stock = excluded.min_stock,
			unit_cost = excluded.unit_cost, sale_price = excluded.sale_price,
			loss_pct = excluded.loss_pct, cook_factor = excluded.cook_factor`,
		item.ID, item.Code, item.Name, item.Kind, item.Unit, item.Stock, item.MinStock,
		item.UnitCost.String(), item.SalePrice.String(), item.LossPct, item.CookFactor)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes the item. Its code number becomes reusable.
func (r *CatalogRepository) DeleteItem(ctx context.Context, id entities.ItemID) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return nil
}

func scanRecipe(row interface{ Scan(...any) error }) (*entities.Recipe, error) {
	var (
		recipe entities.Recipe
		lines  []byte
	)
	if err := row.Scan(&recipe.ID, &recipe.ProductID, &lines, &recipe.Method, &recipe.PhotoRef); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &recipe.Lines); err != nil {
		return nil, fmt.Errorf("corrupt bom lines for recipe %s: %w", recipe.ID, err)
	}
	return &recipe, nil
}

// GetRecipe returns the recipe with its BOM lines.
func (r *CatalogRepository) GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT id, product_id, lines, method, photo_ref FROM recipes WHERE id = ?", id)
	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recipe %s", entities.ErrNotFound, id)
	}
	return recipe, err
}

// RecipeForProduct returns the recipe producing the given finished good.
func (r *CatalogRepository) RecipeForProduct(ctx context.Context, productID entities.ItemID) (*entities.Recipe, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT id, product_id, lines, method, photo_ref FROM recipes WHERE product_id = ?", productID)
	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recipe for product %s", entities.ErrNotFound, productID)
	}
	return recipe, err
}

// SaveRecipe stores the recipe, replacing any previous version.
func (r *CatalogRepository) SaveRecipe(ctx context.Context, recipe *entities.Recipe) error {
	lines, err := json.Marshal(recipe.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode bom lines: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO recipes (id, product_id, lines, method, photo_ref)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id, lines = excluded.lines,
			method = excluded.method, photo_ref = excluded.photo_ref`,
		recipe.ID, recipe.ProductID, lines, recipe.Method, recipe.PhotoRef)
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", recipe.ID, err)
	}
	return nil
}

// DeleteRecipe clears a finished good's BOM without touching the item.
func (r *CatalogRepository) DeleteRecipe(ctx context.Context, id entities.RecipeID) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: recipe %s", entities.ErrNotFound, id)
	}
	return nil
}

// CurrentStock returns the item's on-hand quantity.
func (r *CatalogRepository) CurrentStock(ctx context.Context, id entities.ItemID) (float64, error) {
	var stock float64
	err := r.store.db.QueryRowContext(ctx,
		"SELECT stock FROM items WHERE id = ?", id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return stock, err
}

// Credit increases the item's stock by qty.
func (r *CatalogRepository) Credit(ctx context.Context, id entities.ItemID, qty float64) error {
	if qty < 0 {
		return fmt.Errorf("%w: credit quantity must not be negative, got %g", entities.ErrInvalidQuantity, qty)
	}
	res, err := r.store.db.ExecContext(ctx,
		"UPDATE items SET stock = stock + ? WHERE id = ?", qty, id)
	if err != nil {
		return fmt.Errorf("failed to credit stock for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	return nil
}

// Debit decreases the item's stock by qty. The guard lives in the WHERE
// clause, so the check and the write are one atomic statement.
func (r *CatalogRepository) Debit(ctx context.Context, id entities.ItemID, qty float64) error {
	if qty < 0 {
		return fmt.Errorf("%w: debit quantity must not be negative, got %g", entities.ErrInvalidQuantity, qty)
	}
	return debitExec(ctx, r.store.db, id, qty)
}

// DebitBatch runs every movement inside one transaction; any failed debit
// rolls back the whole batch.
func (r *CatalogRepository) DebitBatch(ctx context.Context, movements []repositories.StockMovement) error {
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range movements {
			if err := debitExec(ctx, tx, m.ItemID, m.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func debitExec(ctx context.Context, db execer, id entities.ItemID, qty float64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE items SET stock = stock - ? WHERE id = ? AND stock + 1e-9 >= ?", qty, id, qty)
	if err != nil {
		return fmt.Errorf("failed to debit stock for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var stock float64
	err = db.QueryRowContext(ctx, "SELECT stock FROM items WHERE id = ?", id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: item %s", entities.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: item %s has %g, need %g", entities.ErrInsufficientStock, id, stock, qty)
}
