package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// OrderRepository provides SQLite-backed order storage. Statuses are stored
// as their wire names and normalized on load, so databases written by older
// builds (HOLD, READY, EXECUTED) load cleanly.
type OrderRepository struct {
	store *Store
}

// NewOrderRepository wraps the store.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

const productionColumns = `id, number, created_at, recipe_id, product_id, quantity, status, note,
	consumed, shortages, lot_number, closed_at, linked_purchase_id, allow_insufficient, archived`

// SaveProductionOrder stores the order, replacing any previous version.
func (r *OrderRepository) SaveProductionOrder(ctx context.Context, order *entities.ProductionOrder) error {
	consumed, err := json.Marshal(order.Consumed)
	if err != nil {
		return fmt.Errorf("failed to encode consumed snapshot: %w", err)
	}
	shortages, err := json.Marshal(order.Shortages)
	if err != nil {
		return fmt.Errorf("failed to encode shortage snapshot: %w", err)
	}

	var closedAt sql.NullString
	if order.ClosedAt != nil {
		closedAt = sql.NullString{String: order.ClosedAt.Format(timeFormat), Valid: true}
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO production_orders (`+productionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, note = excluded.note,
			consumed = excluded.consumed, shortages = excluded.shortages,
			lot_number = excluded.lot_number, closed_at = excluded.closed_at,
			linked_purchase_id = excluded.linked_purchase_id,
			allow_insufficient = excluded.allow_insufficient,
			archived = excluded.archived`,
		order.ID, order.Number, order.CreatedAt.Format(timeFormat),
		order.RecipeID, order.ProductID, order.Quantity,
		order.Status.String(), order.Note, consumed, shortages,
		order.LotNumber, closedAt, order.LinkedPurchaseID,
		order.AllowInsufficient, order.Archived)
	if err != nil {
		return fmt.Errorf("failed to save production order %s: %w", order.ID, err)
	}
	return nil
}

func scanProductionOrder(row interface{ Scan(...any) error }) (*entities.ProductionOrder, error) {
	var (
		order     entities.ProductionOrder
		createdAt string
		status    string
		consumed  []byte
		shortages []byte
		closedAt  sql.NullString
	)
	err := row.Scan(&order.ID, &order.Number, &createdAt, &order.RecipeID, &order.ProductID,
		&order.Quantity, &status, &order.Note, &consumed, &shortages,
		&order.LotNumber, &closedAt, &order.LinkedPurchaseID,
		&order.AllowInsufficient, &order.Archived)
	if err != nil {
		return nil, err
	}

	if order.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at for order %s: %w", order.ID, err)
	}
	if order.Status, err = entities.NormalizeProductionStatus(status); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if err = json.Unmarshal(consumed, &order.Consumed); err != nil {
		return nil, fmt.Errorf("corrupt consumed snapshot for order %s: %w", order.ID, err)
	}
	if err = json.Unmarshal(shortages, &order.Shortages); err != nil {
		return nil, fmt.Errorf("corrupt shortage snapshot for order %s: %w", order.ID, err)
	}
	if closedAt.Valid {
		t, err := time.Parse(timeFormat, closedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt closed_at for order %s: %w", order.ID, err)
		}
		order.ClosedAt = &t
	}
	return &order, nil
}

// GetProductionOrder returns the order by internal id.
func (r *OrderRepository) GetProductionOrder(ctx context.Context, id string) (*entities.ProductionOrder, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT "+productionColumns+" FROM production_orders WHERE id = ?", id)
	order, err := scanProductionOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: production order %s", entities.ErrNotFound, id)
	}
	return order, err
}

// ListProductionOrders returns orders sorted by number.
func (r *OrderRepository) ListProductionOrders(ctx context.Context, filter repositories.OrderFilter) ([]*entities.ProductionOrder, error) {
	query := "SELECT " + productionColumns + " FROM production_orders"
	if !filter.IncludeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY number"

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list production orders: %w", err)
	}
	defer rows.Close()

	var orders []*entities.ProductionOrder
	for rows.Next() {
		order, err := scanProductionOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// DeleteProductionOrder removes the order. Stock reversal is the caller's
// responsibility; the repository only purges the record.
func (r *OrderRepository) DeleteProductionOrder(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM production_orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete production order %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: production order %s", entities.ErrNotFound, id)
	}
	return nil
}

const purchaseColumns = "id, number, created_at, status, note, lines, source_production_id, archived"

// SavePurchaseOrder stores the order, replacing any previous version.
func (r *OrderRepository) SavePurchaseOrder(ctx context.Context, order *entities.PurchaseOrder) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode purchase lines: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (`+purchaseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, note = excluded.note, lines = excluded.lines,
			source_production_id = excluded.source_production_id,
			archived = excluded.archived`,
		order.ID, order.Number, order.CreatedAt.Format(timeFormat),
		order.Status.String(), order.Note, lines,
		order.SourceProductionID, order.Archived)
	if err != nil {
		return fmt.Errorf("failed to save purchase order %s: %w", order.ID, err)
	}
	return nil
}

func scanPurchaseOrder(row interface{ Scan(...any) error }) (*entities.PurchaseOrder, error) {
	var (
		order     entities.PurchaseOrder
		createdAt string
		status    string
		lines     []byte
	)
	err := row.Scan(&order.ID, &order.Number, &createdAt, &status, &order.Note,
		&lines, &order.SourceProductionID, &order.Archived)
	if err != nil {
		return nil, err
	}

	if order.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at for order %s: %w", order.ID, err)
	}
	if order.Status, err = entities.NormalizePurchaseStatus(status); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if err = json.Unmarshal(lines, &order.Lines); err != nil {
		return nil, fmt.Errorf("corrupt purchase lines for order %s: %w", order.ID, err)
	}
	return &order, nil
}

// GetPurchaseOrder returns the order by internal id.
func (r *OrderRepository) GetPurchaseOrder(ctx context.Context, id string) (*entities.PurchaseOrder, error) {
	row := r.store.db.QueryRowContext(ctx,
		"SELECT "+purchaseColumns+" FROM purchase_orders WHERE id = ?", id)
	order, err := scanPurchaseOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: purchase order %s", entities.ErrNotFound, id)
	}
	return order, err
}

// ListPurchaseOrders returns orders sorted by number.
func (r *OrderRepository) ListPurchaseOrders(ctx context.Context, filter repositories.OrderFilter) ([]*entities.PurchaseOrder, error) {
	query := "SELECT " + purchaseColumns + " FROM purchase_orders"
	if !filter.IncludeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY number"

	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []*entities.PurchaseOrder
	for rows.Next() {
		order, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// DeletePurchaseOrder removes the order.
func (r *OrderRepository) DeletePurchaseOrder(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM purchase_orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete purchase order %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: purchase order %s", entities.ErrNotFound, id)
	}
	return nil
}
