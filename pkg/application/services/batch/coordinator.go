package batch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// Coordinator holds one operator's current batch selection and orchestrates
// turning it into orders. It is session state passed by reference, not a
// global: each operator gets their own coordinator, and the commit lock
// lives inside it. The lock only prevents duplicate generation from the same
// in-memory selection (double click, stale screen); it is no substitute for
// the stock serialization the repositories provide.
type Coordinator struct {
	planner    *planner.Service
	production *production.Service
	purchasing *purchasing.Service
	log        *zap.Logger

	mu         sync.Mutex
	selections []dto.Selection
	committed  bool
}

// NewCoordinator creates an empty batch session.
func NewCoordinator(plan *planner.Service, prod *production.Service, purch *purchasing.Service, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{planner: plan, production: prod, purchasing: purch, log: log}
}

// Select replaces the current selection set. Refused while the previous
// selection's commit is still in effect.
func (c *Coordinator) Select(selections []dto.Selection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committed {
		return entities.ErrCommitLocked
	}
	c.selections = append([]dto.Selection(nil), selections...)
	return nil
}

// Selections returns a copy of the current selection set.
func (c *Coordinator) Selections() []dto.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dto.Selection(nil), c.selections...)
}

// Calculate returns the consolidated requirement/shortage table for the
// current selection. Read-only and repeatable.
func (c *Coordinator) Calculate(ctx context.Context) (*dto.SimulationResult, error) {
	c.mu.Lock()
	selections := append([]dto.Selection(nil), c.selections...)
	c.mu.Unlock()

	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: no selections", entities.ErrInvalidQuantity)
	}
	return c.planner.Simulate(ctx, selections)
}

// Commit creates one production order per selection and, when the aggregate
// simulation showed any shortage, exactly one consolidated purchase order
// covering the union of shortages. A second commit from the same selection
// is refused until Clear is called.
func (c *Coordinator) Commit(ctx context.Context) (*dto.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committed {
		return nil, entities.ErrCommitLocked
	}
	if len(c.selections) == 0 {
		return nil, fmt.Errorf("%w: no selections", entities.ErrInvalidQuantity)
	}

	sim, err := c.planner.Simulate(ctx, c.selections)
	if err != nil {
		return nil, err
	}

	result := &dto.CommitResult{}
	for _, sel := range c.selections {
		order, err := c.production.Create(ctx, sel.RecipeID, sel.Quantity,
			"created by batch simulation", true)
		if err != nil {
			return nil, fmt.Errorf("failed to create production order for recipe %s: %w", sel.RecipeID, err)
		}
		result.Orders = append(result.Orders, order)
	}

	if sim.HasShortage() {
		note := fmt.Sprintf("consolidated coverage for %d production order(s)", len(result.Orders))
		po, err := c.purchasing.CreateForShortages(ctx, sim.ShortLines(), "", note)
		if err != nil {
			return nil, fmt.Errorf("failed to create consolidated purchase order: %w", err)
		}
		result.PurchaseOrder = po
	}

	c.committed = true

	c.log.Info("batch committed",
		zap.Int("orders", len(result.Orders)),
		zap.Bool("purchase_order", result.PurchaseOrder != nil))

	return result, nil
}

// Clear drops the selection and releases the commit lock.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selections = nil
	c.committed = false
}
