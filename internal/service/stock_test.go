package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruithappens/Coffeecue-sub003/internal/bus"
	"github.com/fruithappens/Coffeecue-sub003/internal/kvstore"
	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

func newStockFixture() (*StockService, *kvstore.Medium, kvstore.Store) {
	medium := kvstore.NewMedium()
	store := medium.Attach()
	return NewStockService(bus.New(store)), medium, store
}

func findItem(t *testing.T, cat model.StockCatalog, category, id string) model.StockItem {
	t.Helper()
	for _, it := range cat[category] {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %s/%s not found", category, id)
	return model.StockItem{}
}

func TestLoadMaterializesAndPersistsDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newStockFixture()

	cat := svc.Load(ctx, "station1")
	for _, category := range model.StockCategories {
		_, ok := cat[category]
		assert.True(t, ok, "default catalog must carry category %q", category)
	}

	coffee := findItem(t, cat, "coffee", "coffee_house")
	assert.Equal(t, 5.0, coffee.Amount)
	assert.Equal(t, 5.0, coffee.Capacity)
	assert.Equal(t, model.StatusGood, coffee.Status)

	// The template was persisted on first access.
	_, err := store.Get(ctx, StockKey("station1"))
	assert.NoError(t, err)
}

func TestUpdateAmountDerivesStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 0.4))
	item := findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house")
	assert.Equal(t, 0.4, item.Amount)
	assert.Equal(t, model.StatusDanger, item.Status)

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 1.5))
	item = findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house")
	assert.Equal(t, model.StatusWarning, item.Status)

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 3))
	item = findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house")
	assert.Equal(t, model.StatusGood, item.Status)
}

func TestUpdateAmountClamps(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 99))
	assert.Equal(t, 5.0, findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house").Amount)

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", -3))
	item := findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house")
	assert.Equal(t, 0.0, item.Amount)
	assert.Equal(t, model.StatusDanger, item.Status)
}

func TestUpdateAmountUnknownTarget(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	assert.False(t, svc.UpdateAmount(ctx, "s", "nope", "coffee_house", 1))
	assert.False(t, svc.UpdateAmount(ctx, "s", "coffee", "nope", 1))
}

func TestUpdateAmountIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "milk", "milk_oat", 0.7))
	once := svc.Load(ctx, "s")
	require.True(t, svc.UpdateAmount(ctx, "s", "milk", "milk_oat", 0.7))
	twice := svc.Load(ctx, "s")

	assert.Equal(t, once, twice)
}

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	medium := kvstore.NewMedium()
	store := medium.Attach()

	first := NewStockService(bus.New(store))
	first.Load(ctx, "s")
	require.True(t, first.UpdateAmount(ctx, "s", "coffee", "coffee_house", 2.5))
	require.True(t, first.AddItem(ctx, "s", "syrups", model.AddItemRequest{
		ID: "syrup_mint", Name: "Mint Syrup", Amount: 0.8, Capacity: 1, Unit: "L",
		LowThreshold: 0.3, CriticalThreshold: 0.1,
	}))

	// A fresh service over the same medium sees the identical catalog.
	second := NewStockService(bus.New(store))
	assert.Equal(t, first.Load(ctx, "s"), second.Load(ctx, "s"))
}

func TestLoadCorruptSnapshotFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	medium := kvstore.NewMedium()
	store := medium.Attach()
	require.NoError(t, store.Set(ctx, StockKey("s"), []byte("{broken")))

	svc := NewStockService(bus.New(store))
	var cat model.StockCatalog
	require.NotPanics(t, func() { cat = svc.Load(ctx, "s") })
	assert.Equal(t, model.StatusGood, findItem(t, cat, "coffee", "coffee_house").Status)
}

func TestDeleteThenAddComputesStatusFresh(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.DeleteItem(ctx, "s", "syrups", "syrup_vanilla"))
	assert.False(t, svc.DeleteItem(ctx, "s", "syrups", "syrup_vanilla"))

	require.True(t, svc.AddItem(ctx, "s", "syrups", model.AddItemRequest{
		ID: "syrup_vanilla", Name: "Vanilla Syrup", Amount: 0.05, Capacity: 1, Unit: "L",
		LowThreshold: 0.3, CriticalThreshold: 0.1,
	}))

	item := findItem(t, svc.Load(ctx, "s"), "syrups", "syrup_vanilla")
	assert.Equal(t, model.StatusDanger, item.Status, "status comes from the new thresholds, not the deleted item")
}

func TestAddItemRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	assert.False(t, svc.AddItem(ctx, "s", "milk", model.AddItemRequest{ID: "milk_oat", Name: "Oat Again", Capacity: 1}))
}

func TestAvailableFiltersDepletedItems(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "milk", "milk_oat", 0))

	ids := []string{}
	for _, it := range svc.Available(ctx, "s", "milk") {
		ids = append(ids, it.ID)
	}
	assert.NotContains(t, ids, "milk_oat")
	assert.Contains(t, ids, "milk_whole")
}

func TestResetRestoresTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 0.1))
	require.True(t, svc.DeleteItem(ctx, "s", "milk", "milk_oat"))

	svc.Reset(ctx, "s")
	cat := svc.Load(ctx, "s")
	assert.Equal(t, 5.0, findItem(t, cat, "coffee", "coffee_house").Amount)
	assert.Equal(t, 2.0, findItem(t, cat, "milk", "milk_oat").Amount)
}

func TestDepleteDecrementsAndDerivesStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	out := svc.Deplete(ctx, "s", "coffee", "coffee_house", 0.02)
	assert.True(t, out.Applied)
	assert.InDelta(t, 0.02, out.Used, 1e-9)
	assert.InDelta(t, 4.98, findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house").Amount, 1e-9)

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 0.505))
	out = svc.Deplete(ctx, "s", "coffee", "coffee_house", 0.01)
	require.True(t, out.Applied)
	item := findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house")
	assert.InDelta(t, 0.495, item.Amount, 1e-9)
	assert.Equal(t, model.StatusDanger, item.Status)
}

func TestDepleteInsufficientOrUnknownSkips(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	require.True(t, svc.UpdateAmount(ctx, "s", "milk", "milk_oat", 0.1))
	out := svc.Deplete(ctx, "s", "milk", "milk_oat", 0.25)
	assert.False(t, out.Applied)
	assert.Equal(t, "insufficient stock", out.Reason)
	assert.InDelta(t, 0.1, findItem(t, svc.Load(ctx, "s"), "milk", "milk_oat").Amount, 1e-9)

	assert.Equal(t, "item vanished", svc.Deplete(ctx, "s", "milk", "nope", 0.1).Reason)
	assert.Equal(t, "item vanished", svc.Deplete(ctx, "s", "nope", "milk_oat", 0.1).Reason)
}

func TestDepleteUsesCurrentAmountNotCallerSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s") // a caller could snapshot 5.0 here

	// An explicit write lands after the snapshot; the decrement must apply
	// to the written value, never restore the older, higher one.
	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 0.05))
	out := svc.Deplete(ctx, "s", "coffee", "coffee_house", 0.01)
	require.True(t, out.Applied)
	assert.InDelta(t, 0.04, findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house").Amount, 1e-9)
}

func TestDepleteConcurrentWritesAllLand(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := svc.Deplete(ctx, "s", "coffee", "coffee_house", 0.01)
			assert.True(t, out.Applied)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 5.0-workers*0.01, findItem(t, svc.Load(ctx, "s"), "coffee", "coffee_house").Amount, 1e-9)
}

func TestMutationNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newStockFixture()
	svc.Load(ctx, "s")

	var updates []StockUpdate
	remove := svc.AddListener(func(u StockUpdate) { updates = append(updates, u) })
	defer remove()

	require.True(t, svc.UpdateAmount(ctx, "s", "coffee", "coffee_house", 4))
	require.Len(t, updates, 1)
	assert.Equal(t, "s", updates[0].StationID)
	assert.Equal(t, 4.0, findItem(t, updates[0].Catalog, "coffee", "coffee_house").Amount)
}

func TestRemoteWriteReplacesCache(t *testing.T) {
	ctx := context.Background()
	medium := kvstore.NewMedium()

	local := NewStockService(bus.New(medium.Attach()))
	local.Load(ctx, "s")

	// Another context overwrites the station key wholesale.
	remote := NewStockService(bus.New(medium.Attach()))
	remote.Load(ctx, "s")
	require.True(t, remote.UpdateAmount(ctx, "s", "coffee", "coffee_house", 1.2))

	item := findItem(t, local.Load(ctx, "s"), "coffee", "coffee_house")
	assert.Equal(t, 1.2, item.Amount, "remote snapshot replaces the local cache")
}
