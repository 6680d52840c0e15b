package model

// StockStatus classifies a stock item against its configured thresholds.
type StockStatus string

const (
	StatusGood    StockStatus = "good"
	StatusWarning StockStatus = "warning"
	StatusDanger  StockStatus = "danger"
)

// StockItem is one tracked inventory entry of a station catalog.
type StockItem struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Category          string      `json:"category"`
	Amount            float64     `json:"amount"`
	Capacity          float64     `json:"capacity"`
	Unit              string      `json:"unit"`
	LowThreshold      float64     `json:"low_threshold"`
	CriticalThreshold float64     `json:"critical_threshold"`
	Status            StockStatus `json:"status"`
}

// DeriveStatus returns the threshold classification for the current amount.
// Status is always recomputed from amount, never carried independently.
func (i StockItem) DeriveStatus() StockStatus {
	switch {
	case i.Amount <= i.CriticalThreshold:
		return StatusDanger
	case i.Amount <= i.LowThreshold:
		return StatusWarning
	default:
		return StatusGood
	}
}

// StockCatalog maps a category name to its ordered item list.
// One catalog exists per station; the owning station is the only writer.
type StockCatalog map[string][]StockItem

// Clone returns a deep copy so cached state cannot be mutated by callers.
func (c StockCatalog) Clone() StockCatalog {
	out := make(StockCatalog, len(c))
	for cat, items := range c {
		cp := make([]StockItem, len(items))
		copy(cp, items)
		out[cat] = cp
	}
	return out
}

// StockCategories lists the catalog categories in display order.
var StockCategories = []string{"milk", "coffee", "cups", "syrups", "sweeteners", "drinks", "other"}

// AddItemRequest is the payload for adding an item to a category.
type AddItemRequest struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Amount            float64 `json:"amount"`
	Capacity          float64 `json:"capacity"`
	Unit              string  `json:"unit"`
	LowThreshold      float64 `json:"low_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
}

// UpdateAmountRequest is the payload for setting an item amount.
type UpdateAmountRequest struct {
	Amount float64 `json:"amount"`
}
