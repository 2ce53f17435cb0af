package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

func TestProductionOrderRoundTrip(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	order := &entities.ProductionOrder{
		ID:        "op-1",
		Number:    1,
		CreatedAt: time.Now(),
		RecipeID:  "r-1",
		ProductID: "pf-1",
		Quantity:  3,
		Status:    entities.ProductionInProgress,
		Consumed: []entities.ConsumedIngredient{
			{ItemID: "mp-1", Qty: 6},
		},
	}
	if err := repo.SaveProductionOrder(ctx, order); err != nil {
		t.Fatalf("SaveProductionOrder() error = %v", err)
	}

	// mutating the saved order or a loaded copy must not reach the store
	order.Consumed[0].Qty = 999

	got, err := repo.GetProductionOrder(ctx, "op-1")
	if err != nil {
		t.Fatalf("GetProductionOrder() error = %v", err)
	}
	if got.Consumed[0].Qty != 6 {
		t.Errorf("stored consumed qty = %g, want 6", got.Consumed[0].Qty)
	}

	got.Status = entities.ProductionClosed
	again, _ := repo.GetProductionOrder(ctx, "op-1")
	if again.Status != entities.ProductionInProgress {
		t.Errorf("stored status = %v, mutation of a loaded order leaked in", again.Status)
	}
}

func TestListProductionOrdersSortedAndFiltered(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	for _, order := range []*entities.ProductionOrder{
		{ID: "op-3", Number: 3, Status: entities.ProductionClosed, Archived: true},
		{ID: "op-1", Number: 1, Status: entities.ProductionIssued},
		{ID: "op-2", Number: 2, Status: entities.ProductionIssued},
	} {
		if err := repo.SaveProductionOrder(ctx, order); err != nil {
			t.Fatalf("SaveProductionOrder() error = %v", err)
		}
	}

	visible, err := repo.ListProductionOrders(ctx, repositories.OrderFilter{})
	if err != nil {
		t.Fatalf("ListProductionOrders() error = %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("visible orders = %d, want 2", len(visible))
	}
	if visible[0].Number != 1 || visible[1].Number != 2 {
		t.Errorf("orders not sorted by number: %d, %d", visible[0].Number, visible[1].Number)
	}

	all, err := repo.ListProductionOrders(ctx, repositories.OrderFilter{IncludeArchived: true})
	if err != nil {
		t.Fatalf("ListProductionOrders() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all orders = %d, want 3", len(all))
	}
}

func TestPurchaseOrderLinesAreCopied(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	order := &entities.PurchaseOrder{
		ID:     "oc-1",
		Number: 1,
		Status: entities.PurchaseOpen,
		Lines: []entities.PurchaseLine{
			{ItemID: "mp-1", ItemCode: "MP001", QtyOrdered: 10},
		},
	}
	if err := repo.SavePurchaseOrder(ctx, order); err != nil {
		t.Fatalf("SavePurchaseOrder() error = %v", err)
	}

	got, err := repo.GetPurchaseOrder(ctx, "oc-1")
	if err != nil {
		t.Fatalf("GetPurchaseOrder() error = %v", err)
	}
	got.Lines[0].QtyReceived = 10

	again, _ := repo.GetPurchaseOrder(ctx, "oc-1")
	if again.Lines[0].QtyReceived != 0 {
		t.Errorf("stored received qty = %g, mutation of a loaded order leaked in", again.Lines[0].QtyReceived)
	}
}

func TestDeleteOrder(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	if err := repo.SavePurchaseOrder(ctx, &entities.PurchaseOrder{ID: "oc-1", Number: 1, Status: entities.PurchaseOpen}); err != nil {
		t.Fatalf("SavePurchaseOrder() error = %v", err)
	}
	if err := repo.DeletePurchaseOrder(ctx, "oc-1"); err != nil {
		t.Fatalf("DeletePurchaseOrder() error = %v", err)
	}
	if _, err := repo.GetPurchaseOrder(ctx, "oc-1"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("GetPurchaseOrder(deleted) error = %v, want ErrNotFound", err)
	}
	if err := repo.DeletePurchaseOrder(ctx, "oc-1"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("DeletePurchaseOrder(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestSequenceNumbering(t *testing.T) {
	repo := NewSequenceRepository()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, repositories.SeqProduction)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}

	// kinds are independent
	got, err := repo.Next(ctx, repositories.SeqPurchase)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got != 1 {
		t.Errorf("Next(purchase) = %d, want 1", got)
	}
}

func TestSequenceSeedKeepsMax(t *testing.T) {
	repo := NewSequenceRepository()
	ctx := context.Background()

	repo.Seed(repositories.SeqLot, 41)
	repo.Seed(repositories.SeqLot, 7) // lower seed must not rewind

	got, err := repo.Next(ctx, repositories.SeqLot)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Next() after seed = %d, want 42", got)
	}
}
