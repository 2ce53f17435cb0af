package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// OrderRepository provides in-memory order storage.
type OrderRepository struct {
	mu         sync.RWMutex
	production map[string]entities.ProductionOrder
	purchase   map[string]entities.PurchaseOrder
}

// NewOrderRepository creates an empty in-memory order ledger.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		production: make(map[string]entities.ProductionOrder),
		purchase:   make(map[string]entities.PurchaseOrder),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// SaveProductionOrder stores the order, replacing any previous version.
func (r *OrderRepository) SaveProductionOrder(_ context.Context, order *entities.ProductionOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.production[order.ID] = *copyProductionOrder(*order)
	return nil
}

// GetProductionOrder returns a copy of the order.
func (r *OrderRepository) GetProductionOrder(_ context.Context, id string) (*entities.ProductionOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.production[id]
	if !exists {
		return nil, fmt.Errorf("%w: production order %s", entities.ErrNotFound, id)
	}
	return copyProductionOrder(order), nil
}

// ListProductionOrders returns orders sorted by number.
func (r *OrderRepository) ListProductionOrders(_ context.Context, filter repositories.OrderFilter) ([]*entities.ProductionOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*entities.ProductionOrder, 0, len(r.production))
	for _, order := range r.production {
		if order.Archived && !filter.IncludeArchived {
			continue
		}
		orders = append(orders, copyProductionOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Number < orders[j].Number })
	return orders, nil
}

// DeleteProductionOrder removes the order. Stock reversal is the caller's
// responsibility; the repository only purges the record.
func (r *OrderRepository) DeleteProductionOrder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.production[id]; !exists {
		return fmt.Errorf("%w: production order %s", entities.ErrNotFound, id)
	}
	delete(r.production, id)
	return nil
}

// SavePurchaseOrder stores the order, replacing any previous version.
func (r *OrderRepository) SavePurchaseOrder(_ context.Context, order *entities.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purchase[order.ID] = *copyPurchaseOrder(*order)
	return nil
}

// GetPurchaseOrder returns a copy of the order.
func (r *OrderRepository) GetPurchaseOrder(_ context.Context, id string) (*entities.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.purchase[id]
	if !exists {
		return nil, fmt.Errorf("%w: purchase order %s", entities.ErrNotFound, id)
	}
	return copyPurchaseOrder(order), nil
}

// ListPurchaseOrders returns orders sorted by number.
func (r *OrderRepository) ListPurchaseOrders(_ context.Context, filter repositories.OrderFilter) ([]*entities.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*entities.PurchaseOrder, 0, len(r.purchase))
	for _, order := range r.purchase {
		if order.Archived && !filter.IncludeArchived {
			continue
		}
		orders = append(orders, copyPurchaseOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Number < orders[j].Number })
	return orders, nil
}

// DeletePurchaseOrder removes the order.
func (r *OrderRepository) DeletePurchaseOrder(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.purchase[id]; !exists {
		return fmt.Errorf("%w: purchase order %s", entities.ErrNotFound, id)
	}
	delete(r.purchase, id)
	return nil
}

func copyProductionOrder(order entities.ProductionOrder) *entities.ProductionOrder {
	consumed := make([]entities.ConsumedIngredient, len(order.Consumed))
	copy(consumed, order.Consumed)
	order.Consumed = consumed

	shortages := make([]entities.ShortageLine, len(order.Shortages))
	copy(shortages, order.Shortages)
	order.Shortages = shortages

	if order.ClosedAt != nil {
		closedAt := *order.ClosedAt
		order.ClosedAt = &closedAt
	}
	return &order
}

func copyPurchaseOrder(order entities.PurchaseOrder) *entities.PurchaseOrder {
	lines := make([]entities.PurchaseLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return &order
}
