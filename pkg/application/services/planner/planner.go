package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// Epsilon absorbs floating-point noise when comparing stock to requirements.
const Epsilon = 1e-9

// Service explodes production selections into consolidated ingredient
// requirements and compares them to on-hand stock. It never mutates stock,
// so simulation before commit is repeatable and side-effect-free.
type Service struct {
	catalog repositories.CatalogRepository
	stock   repositories.StockRepository
	log     *zap.Logger
}

// NewService creates a planner over the given catalog and stock snapshot.
func NewService(catalog repositories.CatalogRepository, stock repositories.StockRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, stock: stock, log: log}
}

// Aggregate explodes each (recipe, quantity) pair and merges the results
// into one requirement list keyed by raw-material item, sorted by item code.
// Cook factors are ignored here: they only affect display quantities.
func (s *Service) Aggregate(ctx context.Context, selections []dto.Selection) ([]entities.Requirement, error) {
	required := make(map[entities.ItemID]float64)

	for _, sel := range selections {
		if sel.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity to produce must be positive, got %d", entities.ErrInvalidQuantity, sel.Quantity)
		}

		recipe, err := s.catalog.GetRecipe(ctx, sel.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get recipe %s: %w", sel.RecipeID, err)
		}

		for _, line := range recipe.Lines {
			required[line.ItemID] += line.Qty * float64(sel.Quantity)
		}
	}

	requirements := make([]entities.Requirement, 0, len(required))
	for _, itemID := range lo.Keys(required) {
		item, err := s.catalog.GetItem(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
		}
		stock, err := s.stock.CurrentStock(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to read stock for %s: %w", itemID, err)
		}

		requirements = append(requirements, entities.Requirement{
			ItemID:       item.ID,
			ItemCode:     item.Code,
			ItemName:     item.Name,
			Unit:         item.Unit,
			RequiredQty:  required[itemID],
			CurrentStock: stock,
		})
	}

	sort.Slice(requirements, func(i, j int) bool {
		return requirements[i].ItemCode < requirements[j].ItemCode
	})

	s.log.Debug("aggregated requirements",
		zap.Int("selections", len(selections)),
		zap.Int("items", len(requirements)))

	return requirements, nil
}

// Resolve compares aggregated requirements to their stock snapshot. Output
// order follows the input, which Aggregate already sorts by item code.
func Resolve(requirements []entities.Requirement) []entities.ShortageLine {
	lines := make([]entities.ShortageLine, 0, len(requirements))
	for _, req := range requirements {
		line := entities.ShortageLine{
			ItemID:       req.ItemID,
			ItemCode:     req.ItemCode,
			ItemName:     req.ItemName,
			Unit:         req.Unit,
			RequiredQty:  req.RequiredQty,
			CurrentStock: req.CurrentStock,
			OK:           req.CurrentStock+Epsilon >= req.RequiredQty,
		}
		if !line.OK {
			line.ShortQty = req.RequiredQty - req.CurrentStock
		}
		lines = append(lines, line)
	}
	return lines
}

// Simulate runs Aggregate and Resolve and prices the shortages with the
// catalog's unit costs.
func (s *Service) Simulate(ctx context.Context, selections []dto.Selection) (*dto.SimulationResult, error) {
	requirements, err := s.Aggregate(ctx, selections)
	if err != nil {
		return nil, err
	}

	shortages := Resolve(requirements)

	cost := decimal.Zero
	for _, line := range shortages {
		if line.OK {
			continue
		}
		item, err := s.catalog.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get item %s: %w", line.ItemID, err)
		}
		cost = cost.Add(item.UnitCost.Mul(decimal.NewFromFloat(line.ShortQty)))
	}

	return &dto.SimulationResult{
		Requirements:          requirements,
		Shortages:             shortages,
		EstimatedPurchaseCost: cost,
	}, nil
}
