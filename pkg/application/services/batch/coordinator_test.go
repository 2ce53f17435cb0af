package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/production"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/domain/repositories"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/memory"
)

type testEnv struct {
	catalog *memory.CatalogRepository
	orders  *memory.OrderRepository
	coord   *Coordinator
}

// flour covers r-1 at small quantities; milk is scarce so larger batches
// produce a consolidated shortage.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	require.NoError(t, catalog.LoadItems([]*entities.Item{
		{ID: "mp-1", Code: "MP001", Name: "Flour", Kind: entities.RawMaterial, Unit: entities.UnitMass, Stock: 100, CookFactor: 1},
		{ID: "mp-2", Code: "MP002", Name: "Milk", Kind: entities.RawMaterial, Unit: entities.UnitVolume, Stock: 1, CookFactor: 1},
		{ID: "pf-1", Code: "PF001", Name: "Bread", Kind: entities.FinishedGood, Unit: entities.UnitCount, CookFactor: 1},
		{ID: "pf-2", Code: "PF002", Name: "Cake", Kind: entities.FinishedGood, Unit: entities.UnitCount, CookFactor: 1},
	}))
	require.NoError(t, catalog.LoadRecipes([]*entities.Recipe{
		{ID: "r-1", ProductID: "pf-1", Lines: []entities.BOMLine{
			{ItemID: "mp-1", Qty: 2, Position: 1},
			{ItemID: "mp-2", Qty: 0.5, Position: 2},
		}},
		{ID: "r-2", ProductID: "pf-2", Lines: []entities.BOMLine{
			{ItemID: "mp-1", Qty: 1, Position: 1},
		}},
	}))

	orders := memory.NewOrderRepository()
	seq := memory.NewSequenceRepository()
	plan := planner.NewService(catalog, catalog, nil)
	purch := purchasing.NewService(catalog, catalog, orders, seq, nil)
	prod := production.NewService(catalog, catalog, orders, seq, plan, purch, nil)

	return &testEnv{
		catalog: catalog,
		orders:  orders,
		coord:   NewCoordinator(plan, prod, purch, nil),
	}
}

func TestCalculate_ReadOnlyAndRepeatable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.coord.Select([]dto.Selection{
		{RecipeID: "r-1", Quantity: 3},
		{RecipeID: "r-2", Quantity: 2},
	}))

	for run := 0; run < 2; run++ {
		sim, err := env.coord.Calculate(ctx)
		require.NoError(t, err)

		require.Len(t, sim.Requirements, 2)
		assert.InDelta(t, 8.0, sim.Requirements[0].RequiredQty, 1e-9, "flour: 3*2 + 2*1")
		assert.InDelta(t, 1.5, sim.Requirements[1].RequiredQty, 1e-9, "milk: 3*0.5")
		assert.True(t, sim.HasShortage())
	}

	prods, err := env.orders.ListProductionOrders(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, prods, "calculate must not create orders")
}

func TestCalculate_EmptySelectionRefused(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coord.Calculate(context.Background())
	assert.ErrorIs(t, err, entities.ErrInvalidQuantity)
}

func TestCommit_CreatesOrdersAndConsolidatedPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.coord.Select([]dto.Selection{
		{RecipeID: "r-1", Quantity: 3},
		{RecipeID: "r-2", Quantity: 2},
	}))

	result, err := env.coord.Commit(ctx)
	require.NoError(t, err)

	require.Len(t, result.Orders, 2)
	assert.Equal(t, entities.RecipeID("r-1"), result.Orders[0].RecipeID)
	assert.Equal(t, 3, result.Orders[0].Quantity)
	assert.Equal(t, entities.RecipeID("r-2"), result.Orders[1].RecipeID)

	require.NotNil(t, result.PurchaseOrder, "milk shortage must open one consolidated purchase order")
	require.Len(t, result.PurchaseOrder.Lines, 1)
	assert.Equal(t, entities.ItemCode("MP002"), result.PurchaseOrder.Lines[0].ItemCode)
	assert.InDelta(t, 0.5, result.PurchaseOrder.Lines[0].QtyOrdered, 1e-9)

	purchases, err := env.orders.ListPurchaseOrders(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestCommit_NoShortageSkipsPurchaseOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.coord.Select([]dto.Selection{{RecipeID: "r-2", Quantity: 5}}))

	result, err := env.coord.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	assert.Nil(t, result.PurchaseOrder)
}

func TestCommit_LockedUntilClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.coord.Select([]dto.Selection{{RecipeID: "r-2", Quantity: 1}}))
	_, err := env.coord.Commit(ctx)
	require.NoError(t, err)

	_, err = env.coord.Commit(ctx)
	assert.ErrorIs(t, err, entities.ErrCommitLocked)

	err = env.coord.Select([]dto.Selection{{RecipeID: "r-1", Quantity: 1}})
	assert.ErrorIs(t, err, entities.ErrCommitLocked)

	env.coord.Clear()
	assert.Empty(t, env.coord.Selections())

	require.NoError(t, env.coord.Select([]dto.Selection{{RecipeID: "r-2", Quantity: 1}}))
	_, err = env.coord.Commit(ctx)
	require.NoError(t, err)

	prods, err := env.orders.ListProductionOrders(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, prods, 2, "clear releases the lock for a fresh selection")
}
