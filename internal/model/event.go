package model

import "encoding/json"

// Event is the envelope pushed to dashboard websocket clients.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event types pushed by the hub.
const (
	EventStockUpdated = "stock_updated"
	EventChatUpdated  = "chat_updated"
)

// StockUpdatedEvent is the data payload of a stock_updated event.
type StockUpdatedEvent struct {
	StationID string       `json:"station_id"`
	Catalog   StockCatalog `json:"catalog"`
}

// ChatUpdatedEvent is the data payload of a chat_updated event.
type ChatUpdatedEvent struct {
	Messages []ChatMessage `json:"messages"`
}
