package purchasing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

// LineRequest is one requested raw material when creating a purchase order.
type LineRequest struct {
	ItemID entities.ItemID
	Qty    float64 // storage units, positive
}

// Service drives the purchase order lifecycle: receiving against ordered
// quantities, adjustment within the received floor, and follow-up order
// spawning for shortfalls.
type Service struct {
	catalog repositories.CatalogRepository
	stock   repositories.StockRepository
	orders  repositories.OrderRepository
	seq     repositories.SequenceRepository
	log     *zap.Logger
}

// NewService wires the purchasing state machine.
func NewService(
	catalog repositories.CatalogRepository,
	stock repositories.StockRepository,
	orders repositories.OrderRepository,
	seq repositories.SequenceRepository,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, stock: stock, orders: orders, seq: seq, log: log}
}

// Create opens a purchase order for the requested raw materials.
func (s *Service) Create(ctx context.Context, requests []LineRequest, note, sourceOrderID string) (*entities.PurchaseOrder, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: purchase order needs at least one line", entities.ErrInvalidQuantity)
	}

	lines := make([]entities.PurchaseLine, 0, len(requests))
	for _, req := range requests {
		item, err := s.catalog.GetItem(ctx, req.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get item %s: %w", req.ItemID, err)
		}
		line, err := entities.NewPurchaseLine(item.ID, item.Code, req.Qty)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}

	number, err := s.seq.Next(ctx, repositories.SeqPurchase)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase sequence: %w", err)
	}

	order, err := entities.NewPurchaseOrder(uuid.NewString(), number, lines)
	if err != nil {
		return nil, err
	}
	order.Note = note
	order.SourceProductionID = sourceOrderID

	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save purchase order: %w", err)
	}

	s.log.Info("purchase order opened",
		zap.Int64("number", order.Number),
		zap.Int("lines", len(lines)))

	return order, nil
}

// CreateForShortages opens a purchase order covering exactly the short
// quantities. Implements the production service's follow-up hook.
func (s *Service) CreateForShortages(ctx context.Context, shortages []entities.ShortageLine, sourceOrderID, note string) (*entities.PurchaseOrder, error) {
	var requests []LineRequest
	for _, line := range shortages {
		if line.OK || line.ShortQty <= 0 {
			continue
		}
		requests = append(requests, LineRequest{ItemID: line.ItemID, Qty: line.ShortQty})
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: shortage list has no short lines", entities.ErrInvalidQuantity)
	}
	return s.Create(ctx, requests, note, sourceOrderID)
}

// Receive credits stock for the submitted per-line quantities and recomputes
// the order status. Lines still outstanding after this step are surfaced as
// missing quantities; the caller decides whether to spawn a follow-up order.
// finalize closes the order explicitly, but only once every line is fully
// received — an under-received order is left PARTIAL, never force-closed.
func (s *Service) Receive(ctx context.Context, id string, receipts map[entities.ItemID]float64, finalize bool) (*dto.ReceiptResult, error) {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: "RECEIVE"}
	}

	// validate before touching stock
	for itemID, qty := range receipts {
		if qty < 0 {
			return nil, fmt.Errorf("%w: received quantity must not be negative, got %g", entities.ErrInvalidQuantity, qty)
		}
		if order.LineFor(itemID) == nil {
			return nil, fmt.Errorf("%w: order %d has no line for item %s", entities.ErrNotFound, order.Number, itemID)
		}
	}

	// credit stock; on a mid-loop failure return the already-credited part
	var applied []repositories.StockMovement
	for itemID, qty := range receipts {
		if qty == 0 {
			continue
		}
		if err := s.stock.Credit(ctx, itemID, qty); err != nil {
			s.rollbackCredits(ctx, applied)
			return nil, fmt.Errorf("failed to credit stock for %s: %w", itemID, err)
		}
		applied = append(applied, repositories.StockMovement{ItemID: itemID, Qty: qty})
		order.LineFor(itemID).QtyReceived += qty
	}

	var missing []dto.MissingQuantity
	for itemID := range receipts {
		line := order.LineFor(itemID)
		if out := line.Outstanding(); out > planner.Epsilon {
			missing = append(missing, dto.MissingQuantity{
				ItemID:   line.ItemID,
				ItemCode: line.ItemCode,
				Qty:      out,
			})
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ItemCode < missing[j].ItemCode })

	order.RecomputeStatus()
	if finalize && order.Status == entities.PurchaseReceived {
		order.Status = entities.PurchaseClosed
	}

	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		s.rollbackCredits(ctx, applied)
		return nil, fmt.Errorf("failed to save purchase order: %w", err)
	}

	s.log.Info("purchase order received",
		zap.Int64("number", order.Number),
		zap.String("status", order.Status.String()),
		zap.Int("missing_lines", len(missing)))

	return &dto.ReceiptResult{Order: order, Missing: missing}, nil
}

// SpawnFollowUp opens a new purchase order carrying exactly the given
// missing quantities, referencing the original order as provenance. The
// original keeps its own status; nothing is force-closed.
func (s *Service) SpawnFollowUp(ctx context.Context, id string, missing []dto.MissingQuantity) (*entities.PurchaseOrder, error) {
	original, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var requests []LineRequest
	for _, m := range missing {
		if m.Qty <= 0 {
			continue
		}
		requests = append(requests, LineRequest{ItemID: m.ItemID, Qty: m.Qty})
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: nothing missing to carry over", entities.ErrInvalidQuantity)
	}

	note := fmt.Sprintf("follow-up for purchase order %d", original.Number)
	return s.Create(ctx, requests, note, original.SourceProductionID)
}

// Adjust sets a line's quantity delta. The resulting final quantity must
// stay at or above what was already received and strictly positive; a line
// meant to go to zero must be removed instead. Reducing final below the
// original ordered quantity is allowed and returns the missing remainder the
// caller may redirect into a follow-up order.
func (s *Service) Adjust(ctx context.Context, id string, itemID entities.ItemID, delta float64) (*entities.PurchaseOrder, float64, error) {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if order.Status.Terminal() {
		return nil, 0, &entities.InvalidTransitionError{From: order.Status.String(), To: "ADJUST"}
	}

	line := order.LineFor(itemID)
	if line == nil {
		return nil, 0, fmt.Errorf("%w: order %d has no line for item %s", entities.ErrNotFound, order.Number, itemID)
	}

	final := line.QtyOrdered + delta
	if final <= planner.Epsilon {
		return nil, 0, fmt.Errorf("%w: item %s", entities.ErrZeroFinalQuantity, line.ItemCode)
	}
	if final+planner.Epsilon < line.QtyReceived {
		return nil, 0, fmt.Errorf("%w: item %s received %g, final would be %g",
			entities.ErrBelowReceivedQuantity, line.ItemCode, line.QtyReceived, final)
	}

	line.QtyAdjusted = delta
	order.RecomputeStatus()

	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		return nil, 0, fmt.Errorf("failed to save purchase order: %w", err)
	}

	missing := line.QtyOrdered - final
	if missing < 0 {
		missing = 0
	}
	return order, missing, nil
}

// RemoveLine drops a line from the order. A line with received stock cannot
// be removed; the last remaining line cannot be removed either, cancel the
// order instead.
func (s *Service) RemoveLine(ctx context.Context, id string, itemID entities.ItemID) (*entities.PurchaseOrder, error) {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: "ADJUST"}
	}

	line := order.LineFor(itemID)
	if line == nil {
		return nil, fmt.Errorf("%w: order %d has no line for item %s", entities.ErrNotFound, order.Number, itemID)
	}
	if line.QtyReceived > planner.Epsilon {
		return nil, fmt.Errorf("%w: item %s already received %g", entities.ErrBelowReceivedQuantity, line.ItemCode, line.QtyReceived)
	}
	if len(order.Lines) == 1 {
		return nil, fmt.Errorf("cannot remove the last line of order %d, cancel the order instead", order.Number)
	}

	for i := range order.Lines {
		if order.Lines[i].ItemID == itemID {
			order.Lines = append(order.Lines[:i], order.Lines[i+1:]...)
			break
		}
	}
	order.RecomputeStatus()

	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save purchase order: %w", err)
	}
	return order, nil
}

// Cancel marks the order cancelled. Stock already received stays on hand;
// only deletion reverses credits.
func (s *Service) Cancel(ctx context.Context, id string) (*entities.PurchaseOrder, error) {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: entities.PurchaseCancelled.String()}
	}

	order.Status = entities.PurchaseCancelled
	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save purchase order: %w", err)
	}

	s.log.Info("purchase order cancelled", zap.Int64("number", order.Number))
	return order, nil
}

// Get returns the order by internal id.
func (s *Service) Get(ctx context.Context, id string) (*entities.PurchaseOrder, error) {
	return s.orders.GetPurchaseOrder(ctx, id)
}

// List returns orders sorted by number.
func (s *Service) List(ctx context.Context, filter repositories.OrderFilter) ([]*entities.PurchaseOrder, error) {
	return s.orders.ListPurchaseOrders(ctx, filter)
}

// SetArchived flags the order's visibility. Only terminal orders may be
// archived.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*entities.PurchaseOrder, error) {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived && !order.Status.Terminal() {
		return nil, &entities.InvalidTransitionError{From: order.Status.String(), To: "ARCHIVED"}
	}

	order.Archived = archived
	if err := s.orders.SavePurchaseOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save purchase order: %w", err)
	}
	return order, nil
}

// Delete reverses every stock credit the order applied and purges it.
func (s *Service) Delete(ctx context.Context, id string) error {
	order, err := s.orders.GetPurchaseOrder(ctx, id)
	if err != nil {
		return err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.QtyReceived <= 0 {
			continue
		}
		if err := s.stock.Debit(ctx, line.ItemID, line.QtyReceived); err != nil {
			return fmt.Errorf("failed to reverse received stock for %s: %w", line.ItemCode, err)
		}
	}

	if err := s.orders.DeletePurchaseOrder(ctx, id); err != nil {
		return err
	}

	s.log.Info("purchase order deleted", zap.Int64("number", order.Number))
	return nil
}

func (s *Service) rollbackCredits(ctx context.Context, applied []repositories.StockMovement) {
	for _, m := range applied {
		if err := s.stock.Debit(ctx, m.ItemID, m.Qty); err != nil {
			s.log.Error("failed to roll back stock credit",
				zap.String("item", string(m.ItemID)),
				zap.Error(err))
		}
	}
}
