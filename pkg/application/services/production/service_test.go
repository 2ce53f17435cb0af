package production

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbatista/fabrica/pkg/application/services/planner"
	"github.com/lbatista/fabrica/pkg/application/services/purchasing"
	"github.com/lbatista/fabrica/pkg/domain/entities"
	"github.com/lbatista/fabrica/pkg/infrastructure/repositories/memory"
)

type testEnv struct {
	catalog    *memory.CatalogRepository
	orders     *memory.OrderRepository
	seq        *memory.SequenceRepository
	purchasing *purchasing.Service
	svc        *Service
}

func newTestEnv(t *testing.T, flourStock, milkStock float64) *testEnv {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	require.NoError(t, catalog.LoadItems([]*entities.Item{
		{ID: "mp-1", Code: "MP001", Name: "Flour", Kind: entities.RawMaterial, Unit: entities.UnitMass, Stock: flourStock, CookFactor: 1},
		{ID: "mp-2", Code: "MP002", Name: "Milk", Kind: entities.RawMaterial, Unit: entities.UnitVolume, Stock: milkStock, CookFactor: 1},
		{ID: "pf-1", Code: "PF001", Name: "Bread", Kind: entities.FinishedGood, Unit: entities.UnitCount, Stock: 0},
	}))
	require.NoError(t, catalog.LoadRecipes([]*entities.Recipe{
		{
			ID:        "r-1",
			ProductID: "pf-1",
			Lines: []entities.BOMLine{
				{ItemID: "mp-1", Qty: 2, Position: 1},
				{ItemID: "mp-2", Qty: 0.5, Position: 2},
			},
		},
	}))

	orders := memory.NewOrderRepository()
	seq := memory.NewSequenceRepository()
	plan := planner.NewService(catalog, catalog, nil)
	purch := purchasing.NewService(catalog, catalog, orders, seq, nil)

	return &testEnv{
		catalog:    catalog,
		orders:     orders,
		seq:        seq,
		purchasing: purch,
		svc:        NewService(catalog, catalog, orders, seq, plan, purch, nil),
	}
}

func (e *testEnv) stock(t *testing.T, id entities.ItemID) float64 {
	t.Helper()
	stock, err := e.catalog.CurrentStock(context.Background(), id)
	require.NoError(t, err)
	return stock
}

func TestCreate_AssignsSequentialNumbers(t *testing.T) {
	env := newTestEnv(t, 100, 100)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)
	second, err := env.svc.Create(ctx, "r-1", 1, "", false)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)
	assert.Equal(t, entities.ProductionIssued, first.Status)
}

func TestStart_DebitsStockAndSnapshotsConsumption(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)

	result, err := env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.NoError(t, err)

	assert.Equal(t, entities.ProductionInProgress, result.Order.Status)
	assert.InDelta(t, 4.0, env.stock(t, "mp-1"), 1e-9)  // 10 - 2*3
	assert.InDelta(t, 3.5, env.stock(t, "mp-2"), 1e-9)  // 5 - 0.5*3

	require.Len(t, result.Order.Consumed, 2)
	assert.InDelta(t, 6.0, result.Order.Consumed[0].Qty, 1e-9)
	assert.InDelta(t, 1.5, result.Order.Consumed[1].Qty, 1e-9)
}

func TestStart_InsufficientStockRefusesAndLeavesStockUntouched(t *testing.T) {
	env := newTestEnv(t, 5, 1)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)

	result, err := env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.ErrorIs(t, err, entities.ErrInsufficientStock)
	require.NotNil(t, result)

	assert.Equal(t, entities.ProductionIssued, result.Order.Status)
	assert.InDelta(t, 5.0, env.stock(t, "mp-1"), 1e-9)
	assert.InDelta(t, 1.0, env.stock(t, "mp-2"), 1e-9)

	require.Len(t, result.Shortages, 2)
	assert.InDelta(t, 1.0, result.Shortages[0].ShortQty, 1e-9) // need 6, have 5
	assert.InDelta(t, 0.5, result.Shortages[1].ShortQty, 1e-9) // need 1.5, have 1
	assert.Nil(t, result.FollowUpPurchase)

	stored, err := env.orders.GetProductionOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ProductionIssued, stored.Status)
	assert.Len(t, stored.Shortages, 2)
}

func TestStart_ShortageSpawnsPurchaseOrderWhenAllowed(t *testing.T) {
	env := newTestEnv(t, 5, 1)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", true)
	require.NoError(t, err)

	result, err := env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.ErrorIs(t, err, entities.ErrInsufficientStock)
	require.NotNil(t, result.FollowUpPurchase)

	po := result.FollowUpPurchase
	require.Len(t, po.Lines, 2)
	assert.InDelta(t, 1.0, po.Lines[0].QtyOrdered, 1e-9)
	assert.InDelta(t, 0.5, po.Lines[1].QtyOrdered, 1e-9)
	assert.Equal(t, order.ID, po.SourceProductionID)
	assert.Equal(t, result.Order.LinkedPurchaseID, po.ID)

	// a retry with the shortage still unresolved must not spawn a second order
	again, err := env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.ErrorIs(t, err, entities.ErrInsufficientStock)
	assert.Nil(t, again.FollowUpPurchase)
}

func TestClose_CreditsProductAndAssignsLot(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.NoError(t, err)

	result, err := env.svc.Transition(ctx, order.ID, entities.ProductionClosed)
	require.NoError(t, err)

	assert.Equal(t, entities.ProductionClosed, result.Order.Status)
	assert.Equal(t, int64(1), result.Order.LotNumber)
	assert.NotNil(t, result.Order.ClosedAt)
	assert.InDelta(t, 3.0, env.stock(t, "pf-1"), 1e-9)
}

func TestCancel_InProductionReturnsConsumedStock(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.NoError(t, err)

	result, err := env.svc.Transition(ctx, order.ID, entities.ProductionCancelled)
	require.NoError(t, err)

	assert.Equal(t, entities.ProductionCancelled, result.Order.Status)
	assert.InDelta(t, 10.0, env.stock(t, "mp-1"), 1e-9)
	assert.InDelta(t, 5.0, env.stock(t, "mp-2"), 1e-9)
}

func TestCancel_IssuedHasNoStockEffect(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionCancelled)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, env.stock(t, "mp-1"), 1e-9)
}

func TestTransition_InvalidTargetRefused(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)

	// ISSUED -> CLOSED skips production
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionClosed)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	// terminal states accept nothing
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionCancelled)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestSetArchived_OnlyFromTerminalStates(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)

	_, err = env.svc.SetArchived(ctx, order.ID, true)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionCancelled)
	require.NoError(t, err)

	archived, err := env.svc.SetArchived(ctx, order.ID, true)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
}

func TestDelete_ClosedOrderReversesAllStockEffectsExactly(t *testing.T) {
	env := newTestEnv(t, 10, 5)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, "r-1", 3, "", false)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionInProgress)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, order.ID, entities.ProductionClosed)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, order.ID))

	assert.Equal(t, 10.0, env.stock(t, "mp-1"), "reversal must be exact")
	assert.Equal(t, 5.0, env.stock(t, "mp-2"))
	assert.Equal(t, 0.0, env.stock(t, "pf-1"))

	_, err = env.orders.GetProductionOrder(ctx, order.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestSequenceNumbersNeverReused(t *testing.T) {
	env := newTestEnv(t, 100, 100)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, "r-1", 1, "", false)
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, first.ID))

	second, err := env.svc.Create(ctx, "r-1", 1, "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Number)
}
