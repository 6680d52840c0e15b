package service

import "github.com/fruithappens/Coffeecue-sub003/internal/model"

// DefaultCatalog returns the template a station starts from. Amounts begin
// at full capacity; thresholds reflect a typical event-day burn rate.
func DefaultCatalog() model.StockCatalog {
	items := []model.StockItem{
		{ID: "milk_whole", Name: "Whole Milk", Category: "milk", Amount: 4, Capacity: 4, Unit: "L", LowThreshold: 1, CriticalThreshold: 0.5},
		{ID: "milk_skim", Name: "Skim Milk", Category: "milk", Amount: 4, Capacity: 4, Unit: "L", LowThreshold: 1, CriticalThreshold: 0.5},
		{ID: "milk_oat", Name: "Oat Milk", Category: "milk", Amount: 2, Capacity: 2, Unit: "L", LowThreshold: 0.6, CriticalThreshold: 0.3},
		{ID: "milk_almond", Name: "Almond Milk", Category: "milk", Amount: 2, Capacity: 2, Unit: "L", LowThreshold: 0.6, CriticalThreshold: 0.3},
		{ID: "milk_soy", Name: "Soy Milk", Category: "milk", Amount: 2, Capacity: 2, Unit: "L", LowThreshold: 0.6, CriticalThreshold: 0.3},

		{ID: "coffee_house", Name: "House Blend", Category: "coffee", Amount: 5, Capacity: 5, Unit: "kg", LowThreshold: 1.5, CriticalThreshold: 0.5},
		{ID: "coffee_dark", Name: "Dark Roast", Category: "coffee", Amount: 3, Capacity: 3, Unit: "kg", LowThreshold: 1, CriticalThreshold: 0.3},
		{ID: "coffee_decaf", Name: "Decaf Blend", Category: "coffee", Amount: 2, Capacity: 2, Unit: "kg", LowThreshold: 0.6, CriticalThreshold: 0.2},

		{ID: "cups_small", Name: "Small Cups", Category: "cups", Amount: 100, Capacity: 100, Unit: "pcs", LowThreshold: 30, CriticalThreshold: 10},
		{ID: "cups_regular", Name: "Regular Cups", Category: "cups", Amount: 150, Capacity: 150, Unit: "pcs", LowThreshold: 40, CriticalThreshold: 15},
		{ID: "cups_large", Name: "Large Cups", Category: "cups", Amount: 100, Capacity: 100, Unit: "pcs", LowThreshold: 30, CriticalThreshold: 10},

		{ID: "syrup_vanilla", Name: "Vanilla Syrup", Category: "syrups", Amount: 1, Capacity: 1, Unit: "L", LowThreshold: 0.3, CriticalThreshold: 0.1},
		{ID: "syrup_caramel", Name: "Caramel Syrup", Category: "syrups", Amount: 1, Capacity: 1, Unit: "L", LowThreshold: 0.3, CriticalThreshold: 0.1},
		{ID: "syrup_hazelnut", Name: "Hazelnut Syrup", Category: "syrups", Amount: 1, Capacity: 1, Unit: "L", LowThreshold: 0.3, CriticalThreshold: 0.1},

		{ID: "sugar_white", Name: "White Sugar", Category: "sweeteners", Amount: 500, Capacity: 500, Unit: "pcs", LowThreshold: 100, CriticalThreshold: 30},
		{ID: "sweetener_stevia", Name: "Stevia", Category: "sweeteners", Amount: 200, Capacity: 200, Unit: "pcs", LowThreshold: 50, CriticalThreshold: 15},
		{ID: "honey", Name: "Honey", Category: "sweeteners", Amount: 1, Capacity: 1, Unit: "L", LowThreshold: 0.3, CriticalThreshold: 0.1},

		{ID: "chocolate_powder", Name: "Hot Chocolate Powder", Category: "drinks", Amount: 2, Capacity: 2, Unit: "kg", LowThreshold: 0.6, CriticalThreshold: 0.2},
		{ID: "chai_mix", Name: "Chai Mix", Category: "drinks", Amount: 1, Capacity: 1, Unit: "kg", LowThreshold: 0.3, CriticalThreshold: 0.1},

		{ID: "napkins", Name: "Napkins", Category: "other", Amount: 500, Capacity: 500, Unit: "pcs", LowThreshold: 100, CriticalThreshold: 30},
		{ID: "stirrers", Name: "Stirrers", Category: "other", Amount: 300, Capacity: 300, Unit: "pcs", LowThreshold: 80, CriticalThreshold: 25},
		{ID: "lids", Name: "Cup Lids", Category: "other", Amount: 350, Capacity: 350, Unit: "pcs", LowThreshold: 90, CriticalThreshold: 30},
	}

	cat := make(model.StockCatalog, len(model.StockCategories))
	for _, c := range model.StockCategories {
		cat[c] = []model.StockItem{}
	}
	for _, it := range items {
		it.Status = it.DeriveStatus()
		cat[it.Category] = append(cat[it.Category], it)
	}
	return cat
}
