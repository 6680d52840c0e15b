package service

import (
	"context"
	"log"
	"strings"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
)

// Per-order consumption constants.
const (
	coffeePerShotKg = 0.01 // 10g of ground coffee per shot

	milkSmallL   = 0.15
	milkRegularL = 0.20
	milkLargeL   = 0.25
)

const noMilk = "no milk"

// DepletionEngine turns a completed order into category-specific stock
// decrements. Depletion is advisory bookkeeping, not admission control:
// each resource is independently best-effort, an insufficient resource is
// skipped (logged, never an error), and there is no rollback across
// resources — partial depletion is intended behavior.
type DepletionEngine struct {
	stock *StockService
}

func NewDepletionEngine(stock *StockService) *DepletionEngine {
	return &DepletionEngine{stock: stock}
}

// Consume applies one completed order against a station's catalog and
// reports the per-resource outcome. It never increases an amount and never
// lets one go negative. The catalog snapshot is used only to pick which
// items an order maps to; the actual check-and-decrement runs atomically
// inside StockService, so concurrent orders and slider writes all land.
func (e *DepletionEngine) Consume(ctx context.Context, stationID string, order model.OrderCompletion) model.DepletionResult {
	catalog := e.stock.Load(ctx, stationID)
	size := orderSize(order)

	var result model.DepletionResult
	result.Coffee = e.consumeCoffee(ctx, stationID, catalog, order)
	result.Milk = e.consumeMilk(ctx, stationID, catalog, order, size)
	result.Cup = e.consumeCup(ctx, stationID, catalog, size)

	if !result.Applied() {
		log.Printf("[Depletion] order %q on %s: nothing decremented", order.CoffeeType, stationID)
	}
	return result
}

func (e *DepletionEngine) consumeCoffee(ctx context.Context, stationID string, catalog model.StockCatalog, order model.OrderCompletion) model.ResourceOutcome {
	if order.Shots <= 0 {
		return model.ResourceOutcome{Reason: "no shots"}
	}
	items := catalog["coffee"]
	if len(items) == 0 {
		return model.ResourceOutcome{Reason: "no coffee items"}
	}
	usage := float64(order.Shots) * coffeePerShotKg
	return e.stock.Deplete(ctx, stationID, "coffee", items[0].ID, usage)
}

func (e *DepletionEngine) consumeMilk(ctx context.Context, stationID string, catalog model.StockCatalog, order model.OrderCompletion, size string) model.ResourceOutcome {
	milkType := strings.TrimSpace(order.MilkType)
	if milkType == "" || strings.EqualFold(milkType, noMilk) {
		return model.ResourceOutcome{Reason: "order has no milk"}
	}
	items := catalog["milk"]
	if len(items) == 0 {
		return model.ResourceOutcome{Reason: "no milk items"}
	}

	// Match the ordered milk by id, then by name; fall back to the first
	// milk item when nothing matches.
	item := items[0]
	for _, it := range items {
		if (order.MilkTypeID != "" && it.ID == order.MilkTypeID) || strings.EqualFold(it.Name, milkType) {
			item = it
			break
		}
	}

	var usage float64
	switch size {
	case "small":
		usage = milkSmallL
	case "large":
		usage = milkLargeL
	default:
		usage = milkRegularL
	}
	return e.stock.Deplete(ctx, stationID, "milk", item.ID, usage)
}

func (e *DepletionEngine) consumeCup(ctx context.Context, stationID string, catalog model.StockCatalog, size string) model.ResourceOutcome {
	items := catalog["cups"]
	if len(items) == 0 {
		return model.ResourceOutcome{Reason: "no cup items"}
	}

	// Pick the cup whose id or name mentions the size tier; fall back to
	// the first cup item.
	item := items[0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.ID), size) || strings.Contains(strings.ToLower(it.Name), size) {
			item = it
			break
		}
	}
	return e.stock.Deplete(ctx, stationID, "cups", item.ID, 1)
}

// orderSize resolves the cup-size tier: the explicit size field when set,
// otherwise a substring match on the coffee-type label, defaulting to
// regular ("medium" is treated as regular).
func orderSize(order model.OrderCompletion) string {
	label := strings.ToLower(strings.TrimSpace(order.Size))
	if label == "" {
		label = strings.ToLower(order.CoffeeType)
	}
	switch {
	case strings.Contains(label, "small"):
		return "small"
	case strings.Contains(label, "large"):
		return "large"
	default:
		return "regular"
	}
}
