package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
)

func seedCatalog(t *testing.T) *CatalogRepository {
	t.Helper()

	repo := NewCatalogRepository()
	err := repo.LoadItems([]*entities.Item{
		{ID: "mp-1", Code: "MP001", Name: "Flour", Kind: entities.RawMaterial, Unit: entities.UnitMass, Stock: 10, CookFactor: 1},
		{ID: "mp-2", Code: "MP002", Name: "Milk", Kind: entities.RawMaterial, Unit: entities.UnitVolume, Stock: 2, CookFactor: 1},
	})
	if err != nil {
		t.Fatalf("LoadItems() error = %v", err)
	}
	return repo
}

func TestGetItemReturnsCopy(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	item, err := repo.GetItem(ctx, "mp-1")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	item.Stock = 999

	again, err := repo.GetItem(ctx, "mp-1")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if again.Stock != 10 {
		t.Errorf("stored stock = %g, mutation of a returned item leaked in", again.Stock)
	}
}

func TestGetItemByCode(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	item, err := repo.GetItemByCode(ctx, "MP002")
	if err != nil {
		t.Fatalf("GetItemByCode() error = %v", err)
	}
	if item.ID != "mp-2" {
		t.Errorf("GetItemByCode() ID = %s, want mp-2", item.ID)
	}

	if _, err := repo.GetItemByCode(ctx, "MP999"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("GetItemByCode(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSaveRecipeCopiesLines(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	recipe := &entities.Recipe{
		ID:        "r-1",
		ProductID: "pf-1",
		Lines:     []entities.BOMLine{{ItemID: "mp-1", Qty: 2, Position: 1}},
	}
	if err := repo.SaveRecipe(ctx, recipe); err != nil {
		t.Fatalf("SaveRecipe() error = %v", err)
	}

	// neither the saved slice nor a returned one aliases the stored lines
	recipe.Lines[0].Qty = 99

	got, err := repo.GetRecipe(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}
	if got.Lines[0].Qty != 2 {
		t.Errorf("stored line qty = %g, want 2", got.Lines[0].Qty)
	}

	got.Lines[0].Qty = 77
	again, _ := repo.GetRecipe(ctx, "r-1")
	if again.Lines[0].Qty != 2 {
		t.Errorf("stored line qty after read mutation = %g, want 2", again.Lines[0].Qty)
	}
}

func TestDebit(t *testing.T) {
	tests := []struct {
		name      string
		qty       float64
		wantErr   error
		wantStock float64
	}{
		{name: "partial debit", qty: 4, wantStock: 6},
		{name: "exact debit", qty: 10, wantStock: 0},
		{name: "overdraw refused", qty: 10.5, wantErr: entities.ErrInsufficientStock, wantStock: 10},
		{name: "negative refused", qty: -1, wantErr: entities.ErrInvalidQuantity, wantStock: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seedCatalog(t)
			ctx := context.Background()

			err := repo.Debit(ctx, "mp-1", tt.qty)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Debit() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Debit() error = %v", err)
			}

			stock, err := repo.CurrentStock(ctx, "mp-1")
			if err != nil {
				t.Fatalf("CurrentStock() error = %v", err)
			}
			if math.Abs(stock-tt.wantStock) > 1e-9 {
				t.Errorf("stock = %g, want %g", stock, tt.wantStock)
			}
		})
	}
}

func TestDebitToleratesFloatNoise(t *testing.T) {
	repo := NewCatalogRepository()
	err := repo.LoadItems([]*entities.Item{
		{ID: "mp-1", Code: "MP001", Name: "Flour", Kind: entities.RawMaterial, Unit: entities.UnitMass, Stock: 0.1 + 0.2, CookFactor: 1},
	})
	if err != nil {
		t.Fatalf("LoadItems() error = %v", err)
	}

	// 0.1+0.2 is slightly above 0.3 in binary; debiting 0.3 must still work
	// and the other direction must stay within epsilon
	if err := repo.Debit(context.Background(), "mp-1", 0.3); err != nil {
		t.Fatalf("Debit(0.3) error = %v", err)
	}
}

func TestDebitBatchAllOrNothing(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	err := repo.DebitBatch(ctx, []repositories.StockMovement{
		{ItemID: "mp-1", Qty: 4},
		{ItemID: "mp-2", Qty: 5}, // exceeds milk's 2
	})
	if !errors.Is(err, entities.ErrInsufficientStock) {
		t.Fatalf("DebitBatch() error = %v, want ErrInsufficientStock", err)
	}

	stock, _ := repo.CurrentStock(ctx, "mp-1")
	if stock != 10 {
		t.Errorf("mp-1 stock = %g, a failed batch must not apply any movement", stock)
	}

	if err := repo.DebitBatch(ctx, []repositories.StockMovement{
		{ItemID: "mp-1", Qty: 4},
		{ItemID: "mp-2", Qty: 1.5},
	}); err != nil {
		t.Fatalf("DebitBatch() error = %v", err)
	}
	stock, _ = repo.CurrentStock(ctx, "mp-1")
	if stock != 6 {
		t.Errorf("mp-1 stock = %g, want 6", stock)
	}
	stock, _ = repo.CurrentStock(ctx, "mp-2")
	if stock != 0.5 {
		t.Errorf("mp-2 stock = %g, want 0.5", stock)
	}
}
