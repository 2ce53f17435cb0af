package production

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// FollowUpCreator spawns a purchase order covering a shortage list. The
// purchasing service implements it; the indirection keeps the two state
// machines from importing each other.
type FollowUpCreator interface {
	CreateForShortages(ctx context.Context, shortages []entities.ShortageLine, sourceOrderID, note string) (*entities.PurchaseOrder, error)
}

// Service drives the production order lifecycle:
// ISSUED -> IN_PRODUCTION -> CLOSED, with cancellation from either
// non-terminal state. Every transition applies its stock side effects and
// status change as one unit, or leaves the order untouched.
type Service struct {
	catalog  repositories.CatalogRepository
	stock    repositories.StockRepository
	orders   repositories.OrderRepository
	seq      repositories.SequenceRepository
	planner  *planner.Service
	followUp FollowUpCreator
	log      *zap.Logger
}

// NewService wires the production state machine. followUp may be nil, in
// which case shortages never spawn purchase orders automatically.
func NewService(
	catalog repositories.CatalogRepository,
	stock repositories.StockRepository,
	orders repositories.OrderRepository,
	seq repositories.SequenceRepository,
	plan *planner.Service,
	followUp FollowUpCreator,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		catalog:  catalog,
		stock:    stock,
		orders:   orders,
		seq:      seq,
		planner:  plan,
		followUp: followUp,
		log:      log,
	}
}

// Create issues a new production order for quantity units of the recipe's
// finished good. The quantity is fixed for the life of the order.
func (s *Service) Create(ctx context.Context, recipeID entities.RecipeID, quantity int, note string, allowInsufficient bool) (*entities.ProductionOrder, error) {
	recipe, err := s.catalog.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", recipeID, err)
	}

	number, err := s.seq.Next(ctx, repositories.SeqProduction)
	if err != nil {
		return nil, fmt.Errorf("failed to get production sequence: %w", err)
	}

	order, err := entities.NewProductionOrder(uuid.NewString(), number, recipe.ID, recipe.ProductID, quantity)
	if err != nil {
		return nil, err
	}
	order.Note = note
	order.AllowInsufficient = allowInsufficient

	if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save production order: %w", err)
	}

	s.log.Info("production order issued",
		zap.Int64("number", order.Number),
		zap.String("recipe", string(recipeID)),
		zap.Int("quantity", quantity))

	return order, nil
}

// Transition moves the order toward the requested state. On a shortage-
// refused start the returned error satisfies
// errors.Is(err, entities.ErrInsufficientStock) and the result still carries
// the order, the shortage list and any auto-generated purchase order.
func (s *Service) Transition(ctx context.Context, id string, target entities.ProductionStatus) (*dto.TransitionResult, error) {
	order, err := s.orders.GetProductionOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.CanTransition(target) {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: target.String()}
	}

	switch target {
	case entities.ProductionInProgress:
		return s.start(ctx, order)
	case entities.ProductionClosed:
		return s.close(ctx, order)
	case entities.ProductionCancelled:
		return s.cancel(ctx, order)
	default:
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: target.String()}
	}
}

// start re-resolves the order's requirements against current stock. Any
// shortage refuses the transition: the order stays ISSUED and stock is not
// touched.
func (s *Service) start(ctx context.Context, order *entities.ProductionOrder) (*dto.TransitionResult, error) {
	sim, err := s.planner.Simulate(ctx, []dto.Selection{{RecipeID: order.RecipeID, Quantity: order.Quantity}})
	if err != nil {
		return nil, err
	}

	if sim.HasShortage() {
		short := sim.ShortLines()
		order.Shortages = short

		result := &dto.TransitionResult{Order: order, Shortages: short}
		if order.AllowInsufficient && s.followUp != nil && order.LinkedPurchaseID == "" {
			note := fmt.Sprintf("auto-generated to cover shortage of production order %d", order.Number)
			po, err := s.followUp.CreateForShortages(ctx, short, order.ID, note)
			if err != nil {
				return nil, fmt.Errorf("failed to create follow-up purchase order: %w", err)
			}
			order.LinkedPurchaseID = po.ID
			result.FollowUpPurchase = po
		}

		if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("failed to save production order: %w", err)
		}

		s.log.Info("production start refused, stock insufficient",
			zap.Int64("number", order.Number),
			zap.Int("short_items", len(short)))

		return result, &entities.InsufficientStockError{Shortages: short}
	}

	movements := make([]repositories.StockMovement, 0, len(sim.Requirements))
	consumed := make([]entities.ConsumedIngredient, 0, len(sim.Requirements))
	for _, req := range sim.Requirements {
		movements = append(movements, repositories.StockMovement{ItemID: req.ItemID, Qty: req.RequiredQty})
		consumed = append(consumed, entities.ConsumedIngredient{
			ItemID:   req.ItemID,
			ItemCode: req.ItemCode,
			Qty:      req.RequiredQty,
		})
	}

	if err := s.stock.DebitBatch(ctx, movements); err != nil {
		return nil, err
	}

	order.Status = entities.ProductionInProgress
	order.Consumed = consumed
	order.Shortages = nil

	if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
		// undo the debit so stock and status stay consistent
		s.creditConsumed(ctx, order)
		return nil, fmt.Errorf("failed to save production order: %w", err)
	}

	s.log.Info("production started",
		zap.Int64("number", order.Number),
		zap.Int("ingredients", len(consumed)))

	return &dto.TransitionResult{Order: order}, nil
}

// close credits the finished good and assigns the lot code.
func (s *Service) close(ctx context.Context, order *entities.ProductionOrder) (*dto.TransitionResult, error) {
	if err := s.stock.Credit(ctx, order.ProductID, float64(order.Quantity)); err != nil {
		return nil, err
	}

	lot, err := s.seq.Next(ctx, repositories.SeqLot)
	if err != nil {
		s.debitProduct(ctx, order)
		return nil, fmt.Errorf("failed to get lot sequence: %w", err)
	}

	now := time.Now()
	order.Status = entities.ProductionClosed
	order.LotNumber = lot
	order.ClosedAt = &now

	if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
		s.debitProduct(ctx, order)
		return nil, fmt.Errorf("failed to save production order: %w", err)
	}

	s.log.Info("production order closed",
		zap.Int64("number", order.Number),
		zap.Int64("lot", lot))

	return &dto.TransitionResult{Order: order}, nil
}

// cancel reverses the start debit when production was already running.
// Cancelling an ISSUED order has no stock side effect.
func (s *Service) cancel(ctx context.Context, order *entities.ProductionOrder) (*dto.TransitionResult, error) {
	if order.Status == entities.ProductionInProgress {
		if err := s.creditConsumed(ctx, order); err != nil {
			return nil, err
		}
	}

	order.Status = entities.ProductionCancelled

	if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save production order: %w", err)
	}

	s.log.Info("production order cancelled", zap.Int64("number", order.Number))

	return &dto.TransitionResult{Order: order}, nil
}

// Get returns the order by internal id.
func (s *Service) Get(ctx context.Context, id string) (*entities.ProductionOrder, error) {
	return s.orders.GetProductionOrder(ctx, id)
}

// List returns orders sorted by number.
func (s *Service) List(ctx context.Context, filter repositories.OrderFilter) ([]*entities.ProductionOrder, error) {
	return s.orders.ListProductionOrders(ctx, filter)
}

// SetArchived flags the order's visibility. Only terminal orders may be
// archived.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*entities.ProductionOrder, error) {
	order, err := s.orders.GetProductionOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived && !order.Status.Terminal() {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: "ARCHIVED"}
	}

	order.Archived = archived
	if err := s.orders.SaveProductionOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save production order: %w", err)
	}
	return order, nil
}

// Delete reverses any stock effects the order applied over its lifetime and
// purges it. Irreversible.
func (s *Service) Delete(ctx context.Context, id string) error {
	order, err := s.orders.GetProductionOrder(ctx, id)
	if err != nil {
		return err
	}

	switch order.Status {
	case entities.ProductionInProgress:
		if err := s.creditConsumed(ctx, order); err != nil {
			return err
		}
	case entities.ProductionClosed:
		// the close credited the finished good; take it back before
		// returning the consumed ingredients
		if err := s.stock.Debit(ctx, order.ProductID, float64(order.Quantity)); err != nil {
			return err
		}
		if err := s.creditConsumed(ctx, order); err != nil {
			return err
		}
	}

	if err := s.orders.DeleteProductionOrder(ctx, id); err != nil {
		return err
	}

	s.log.Info("production order deleted", zap.Int64("number", order.Number))
	return nil
}

func (s *Service) creditConsumed(ctx context.Context, order *entities.ProductionOrder) error {
	for _, c := range order.Consumed {
		if err := s.stock.Credit(ctx, c.ItemID, c.Qty); err != nil {
			return fmt.Errorf("failed to return %g of %s to stock: %w", c.Qty, c.ItemCode, err)
		}
	}
	return nil
}

func (s *Service) debitProduct(ctx context.Context, order *entities.ProductionOrder) {
	if err := s.stock.Debit(ctx, order.ProductID, float64(order.Quantity)); err != nil {
		s.log.Error("failed to undo finished good credit",
			zap.Int64("number", order.Number),
			zap.Error(err))
	}
}
