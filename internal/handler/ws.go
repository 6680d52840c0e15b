package handler

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"
)

type WSHandler struct {
	hub *service.WSHub
}

func NewWSHandler(hub *service.WSHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Upgrade accepts a dashboard websocket connection. An optional ?station=
// query scopes the client to one station's stock events.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("station_id", c.Query("station"))
		return websocket.New(h.handleConnection)(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	stationID, _ := c.Locals("station_id").(string)

	client := &service.WSClient{
		Conn:      c,
		StationID: stationID,
		Send:      make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// Writer goroutine
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader loop
	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}

		// Reset deadline on any message
		c.SetReadDeadline(time.Now().Add(60 * time.Second))

		var event model.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case "ping":
			pong, _ := json.Marshal(model.Event{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		case "subscribe":
			// Client can re-scope to a station after connecting
			var sub struct {
				StationID string `json:"station_id"`
			}
			if err := json.Unmarshal(event.Data, &sub); err == nil {
				h.hub.Rescope(client, sub.StationID)
			}
		default:
			log.Printf("WS: unknown event type %s", event.Type)
		}
	}
}
