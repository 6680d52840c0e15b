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

func newDepletionFixture(ctx context.Context) (*DepletionEngine, *StockService) {
	store := kvstore.NewMedium().Attach()
	stock := NewStockService(bus.New(store))
	stock.Load(ctx, "s")
	return NewDepletionEngine(stock), stock
}

func TestConsumeRegularOrder(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	result := engine.Consume(ctx, "s", model.OrderCompletion{
		CoffeeType: "Regular Flat White",
		MilkType:   "Whole Milk",
		Shots:      2,
	})

	require.True(t, result.Applied())
	assert.True(t, result.Coffee.Applied)
	assert.InDelta(t, 0.02, result.Coffee.Used, 1e-9)
	assert.True(t, result.Milk.Applied)
	assert.Equal(t, "milk_whole", result.Milk.ItemID)
	assert.InDelta(t, 0.20, result.Milk.Used, 1e-9)
	assert.True(t, result.Cup.Applied)
	assert.Equal(t, "cups_regular", result.Cup.ItemID)

	cat := stock.Load(ctx, "s")
	assert.InDelta(t, 4.98, findItem(t, cat, "coffee", "coffee_house").Amount, 1e-9)
	assert.InDelta(t, 3.80, findItem(t, cat, "milk", "milk_whole").Amount, 1e-9)
	assert.Equal(t, 149.0, findItem(t, cat, "cups", "cups_regular").Amount)
}

func TestConsumePartialSuccessIsIntended(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	// Large order needs 0.25L of oat milk but only 0.2L remains.
	require.True(t, stock.UpdateAmount(ctx, "s", "milk", "milk_oat", 0.2))

	result := engine.Consume(ctx, "s", model.OrderCompletion{
		CoffeeType: "Large Latte",
		MilkType:   "Oat Milk",
		Shots:      1,
	})

	assert.False(t, result.Milk.Applied)
	assert.Equal(t, "insufficient stock", result.Milk.Reason)
	assert.True(t, result.Coffee.Applied, "coffee is still decremented — no rollback")
	assert.True(t, result.Cup.Applied)
	assert.Equal(t, "cups_large", result.Cup.ItemID)

	cat := stock.Load(ctx, "s")
	assert.InDelta(t, 0.2, findItem(t, cat, "milk", "milk_oat").Amount, 1e-9, "skipped milk is untouched")
	assert.InDelta(t, 4.99, findItem(t, cat, "coffee", "coffee_house").Amount, 1e-9)
}

func TestConsumeNeverIncreasesAmounts(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	before := stock.Load(ctx, "s")
	engine.Consume(ctx, "s", model.OrderCompletion{CoffeeType: "Small Cappuccino", MilkType: "Skim Milk", Shots: 1})
	after := stock.Load(ctx, "s")

	for category, items := range after {
		for _, it := range items {
			assert.LessOrEqual(t, it.Amount, findItem(t, before, category, it.ID).Amount)
			assert.GreaterOrEqual(t, it.Amount, 0.0)
		}
	}
}

func TestConsumeInsufficientCoffeeSkipped(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	require.True(t, stock.UpdateAmount(ctx, "s", "coffee", "coffee_house", 0.005))

	result := engine.Consume(ctx, "s", model.OrderCompletion{CoffeeType: "Regular Long Black", Shots: 1})
	assert.False(t, result.Coffee.Applied)
	assert.Equal(t, "insufficient stock", result.Coffee.Reason)
	assert.InDelta(t, 0.005, findItem(t, stock.Load(ctx, "s"), "coffee", "coffee_house").Amount, 1e-9)
}

func TestConsumeNoMilkOrder(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	before := stock.Load(ctx, "s")
	result := engine.Consume(ctx, "s", model.OrderCompletion{CoffeeType: "Regular Espresso", MilkType: "No Milk", Shots: 1})

	assert.False(t, result.Milk.Applied)
	assert.Equal(t, before["milk"], stock.Load(ctx, "s")["milk"])
	assert.True(t, result.Coffee.Applied)
}

func TestConsumeMilkMatching(t *testing.T) {
	ctx := context.Background()
	engine, _ := newDepletionFixture(ctx)

	// Match by id wins.
	result := engine.Consume(ctx, "s", model.OrderCompletion{
		CoffeeType: "Regular Latte", MilkType: "Oat", MilkTypeID: "milk_oat", Shots: 1,
	})
	assert.Equal(t, "milk_oat", result.Milk.ItemID)

	// Unknown milk falls back to the first milk item.
	result = engine.Consume(ctx, "s", model.OrderCompletion{
		CoffeeType: "Regular Latte", MilkType: "Camel Milk", Shots: 1,
	})
	assert.Equal(t, "milk_whole", result.Milk.ItemID)
	assert.True(t, result.Milk.Applied)
}

func TestConsumeZeroShotsSkipsCoffee(t *testing.T) {
	ctx := context.Background()
	engine, _ := newDepletionFixture(ctx)

	result := engine.Consume(ctx, "s", model.OrderCompletion{CoffeeType: "Regular Hot Chocolate", MilkType: "Whole Milk", Shots: 0})
	assert.False(t, result.Coffee.Applied)
	assert.Equal(t, "no shots", result.Coffee.Reason)
	assert.True(t, result.Milk.Applied)
	assert.True(t, result.Cup.Applied)
}

func TestConsumeConcurrentOrdersAllLand(t *testing.T) {
	ctx := context.Background()
	engine, stock := newDepletionFixture(ctx)

	const orders = 40
	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Consume(ctx, "s", model.OrderCompletion{CoffeeType: "Regular Espresso", Shots: 1})
		}()
	}
	wg.Wait()

	// Every order's decrement survives; none is lost to a stale overwrite.
	cat := stock.Load(ctx, "s")
	assert.InDelta(t, 5.0-orders*coffeePerShotKg, findItem(t, cat, "coffee", "coffee_house").Amount, 1e-9)
	assert.Equal(t, float64(150-orders), findItem(t, cat, "cups", "cups_regular").Amount)
}

func TestOrderSizeResolution(t *testing.T) {
	assert.Equal(t, "small", orderSize(model.OrderCompletion{CoffeeType: "Small Latte"}))
	assert.Equal(t, "large", orderSize(model.OrderCompletion{CoffeeType: "Large Latte"}))
	assert.Equal(t, "regular", orderSize(model.OrderCompletion{CoffeeType: "Medium Latte"}))
	assert.Equal(t, "regular", orderSize(model.OrderCompletion{CoffeeType: "Latte"}))
	// Explicit size field wins over the label.
	assert.Equal(t, "large", orderSize(model.OrderCompletion{CoffeeType: "Small Latte", Size: "large"}))
}
