package model

// OrderCompletion is the callback payload the external order scheduler sends
// when an order finishes. It is consumed once for stock depletion and discarded.
type OrderCompletion struct {
	OrderID    string `json:"order_id,omitempty"`
	CoffeeType string `json:"coffee_type"`
	MilkType   string `json:"milk_type"`
	MilkTypeID string `json:"milk_type_id,omitempty"`
	Shots      int    `json:"shots"`
	Size       string `json:"size,omitempty"`
}

// ResourceOutcome reports what depletion did to one resource of an order.
type ResourceOutcome struct {
	ItemID  string  `json:"item_id,omitempty"`
	Used    float64 `json:"used"`
	Applied bool    `json:"applied"`
	Reason  string  `json:"reason,omitempty"`
}

// DepletionResult enumerates the per-resource outcome of consuming one order.
// Depletion is advisory bookkeeping: a skipped resource is reported here but
// never fails the order.
type DepletionResult struct {
	Coffee ResourceOutcome `json:"coffee"`
	Milk   ResourceOutcome `json:"milk"`
	Cup    ResourceOutcome `json:"cup"`
}

// Applied reports whether at least one resource was actually decremented.
func (r DepletionResult) Applied() bool {
	return r.Coffee.Applied || r.Milk.Applied || r.Cup.Applied
}
