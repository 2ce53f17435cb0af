package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/batch"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/memory"
	"github.com/lbatista/fabrica/pkg/interfaces/cli/output"
)

func main() {
	ctx := context.Background()

	catalog := memory.NewCatalogRepository()
	orders := memory.NewOrderRepository()
	seq := memory.NewSequenceRepository()
	setupBakeryCatalog(catalog)

	plan := planner.NewService(catalog, catalog, nil)
	purch := purchasing.NewService(catalog, catalog, orders, seq, nil)
	prod := production.NewService(catalog, catalog, orders, seq, plan, purch, nil)
	coord := batch.NewCoordinator(plan, prod, purch, nil)

	selections := []dto.Selection{
		{RecipeID: "recipe-PF001", Quantity: 40},
		{RecipeID: "recipe-PF002", Quantity: 10},
	}

	fmt.Println("Simulating tomorrow's production...")
	if err := coord.Select(selections); err != nil {
		fmt.Printf("selection failed: %v\n", err)
		return
	}
	sim, err := coord.Calculate(ctx)
	if err != nil {
		fmt.Printf("simulation failed: %v\n", err)
		return
	}
	output.Simulation(os.Stdout, sim, output.Config{Format: "text"})

	fmt.Println("\nCommitting the batch...")
	result, err := coord.Commit(ctx)
	if err != nil {
		fmt.Printf("commit failed: %v\n", err)
		return
	}
	fmt.Printf("Created %d production orders\n", len(result.Orders))
	if result.PurchaseOrder != nil {
		fmt.Printf("Consolidated purchase order OC %s covers the shortage\n",
			output.FormatOrderNumber(result.PurchaseOrder.Number))

		receipts := make(map[entities.ItemID]float64)
		for _, line := range result.PurchaseOrder.Lines {
			receipts[line.ItemID] = line.QtyOrdered
		}
		if _, err := purch.Receive(ctx, result.PurchaseOrder.ID, receipts, true); err != nil {
			fmt.Printf("receive failed: %v\n", err)
			return
		}
		fmt.Println("Purchase order fully received; stock replenished")
	}

	fmt.Println("\nRunning the first order...")
	op := result.Orders[0]
	if _, err := prod.Transition(ctx, op.ID, entities.ProductionInProgress); err != nil {
		if errors.Is(err, entities.ErrInsufficientStock) {
			fmt.Println("still short after receiving, aborting")
		} else {
			fmt.Printf("start failed: %v\n", err)
		}
		return
	}
	closed, err := prod.Transition(ctx, op.ID, entities.ProductionClosed)
	if err != nil {
		fmt.Printf("close failed: %v\n", err)
		return
	}

	product, _ := catalog.GetItem(ctx, closed.Order.ProductID)
	fmt.Printf("Order OP %s closed, lot %s\n",
		output.FormatOrderNumber(closed.Order.Number),
		output.FormatLot(closed.Order.LotNumber))
	fmt.Printf("Label payload: %s\n",
		output.TraceabilityCode(product.Code, closed.Order.LotNumber))
}

func setupBakeryCatalog(catalog *memory.CatalogRepository) {
	items := []*entities.Item{
		{ID: "item-MP001", Code: "MP001", Name: "Wheat flour", Kind: entities.RawMaterial,
			Unit: entities.UnitMass, Stock: 25, UnitCost: decimal.RequireFromString("4.35"), CookFactor: 1},
		{ID: "item-MP002", Code: "MP002", Name: "Whole milk", Kind: entities.RawMaterial,
			Unit: entities.UnitVolume, Stock: 4, UnitCost: decimal.RequireFromString("2.10"), CookFactor: 1},
		{ID: "item-MP003", Code: "MP003", Name: "Butter", Kind: entities.RawMaterial,
			Unit: entities.UnitMass, Stock: 0.8, UnitCost: decimal.RequireFromString("18.00"), CookFactor: 0.85},
		{ID: "item-PF001", Code: "PF001", Name: "Sourdough loaf", Kind: entities.FinishedGood,
			Unit: entities.UnitCount, SalePrice: decimal.RequireFromString("12.50"), CookFactor: 1},
		{ID: "item-PF002", Code: "PF002", Name: "Brioche", Kind: entities.FinishedGood,
			Unit: entities.UnitCount, SalePrice: decimal.RequireFromString("9.00"), CookFactor: 1},
	}
	if err := catalog.LoadItems(items); err != nil {
		panic(err)
	}

	recipes := []*entities.Recipe{
		{ID: "recipe-PF001", ProductID: "item-PF001", Lines: []entities.BOMLine{
			{ItemID: "item-MP001", Qty: 0.5, Position: 1},
			{ItemID: "item-MP002", Qty: 0.05, Position: 2},
		}},
		{ID: "recipe-PF002", ProductID: "item-PF002", Lines: []entities.BOMLine{
			{ItemID: "item-MP001", Qty: 0.3, Position: 1},
			{ItemID: "item-MP002", Qty: 0.1, Position: 2},
			{ItemID: "item-MP003", Qty: 0.15, Position: 3},
		}},
	}
	if err := catalog.LoadRecipes(recipes); err != nil {
		panic(err)
	}
}
