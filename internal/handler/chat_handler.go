package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"
)

type ChatHandler struct {
	chat *service.ChatManager
}

func NewChatHandler(chat *service.ChatManager) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// PostMessage sends a message as the given station.
// POST /api/v1/stations/:id/chat/messages
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	stationID := c.Params("id")

	var req model.ChatPostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Content == "" {
		return c.Status(400).JSON(fiber.Map{"error": "content is required"})
	}

	ch, err := h.chat.Channel(c.Context(), stationID)
	if err != nil {
		log.Printf("[Chat] channel for %s unavailable: %v", stationID, err)
		return c.Status(503).JSON(fiber.Map{"error": "chat unavailable"})
	}

	msg, err := ch.Send(c.Context(), req.Content, req.IsUrgent)
	if err != nil {
		if errors.Is(err, service.ErrChatNotInitialized) {
			return c.Status(409).JSON(fiber.Map{"error": "chat channel not initialized"})
		}
		log.Printf("[Chat] send from %s failed: %v", stationID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to store message"})
	}

	log.Printf("[Chat] sent: station=%s urgent=%t content='%.40s'", stationID, req.IsUrgent, req.Content)
	return c.Status(201).JSON(msg)
}

// GetMessages returns the full shared log as seen by the given station's
// channel. The log is global across stations; station scoping is display-only.
// GET /api/v1/stations/:id/chat/messages
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	stationID := c.Params("id")

	ch, err := h.chat.Channel(c.Context(), stationID)
	if err != nil {
		return c.Status(503).JSON(fiber.Map{"error": "chat unavailable"})
	}

	msgs := ch.LoadMessages(c.Context())
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// DeleteMessage removes a message by id.
// DELETE /api/v1/stations/:id/chat/messages/:msgId
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	stationID := c.Params("id")
	msgID := c.Params("msgId")

	ch, err := h.chat.Channel(c.Context(), stationID)
	if err != nil {
		return c.Status(503).JSON(fiber.Map{"error": "chat unavailable"})
	}
	if !ch.DeleteMessage(c.Context(), msgID) {
		return c.Status(404).JSON(fiber.Map{"error": "message not found"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Reset clears the shared log. Admin/debug operation.
// POST /api/v1/stations/:id/chat/reset
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	stationID := c.Params("id")

	ch, err := h.chat.Channel(c.Context(), stationID)
	if err != nil {
		return c.Status(503).JSON(fiber.Map{"error": "chat unavailable"})
	}
	if err := ch.ResetMessages(c.Context()); err != nil {
		log.Printf("[Chat] reset failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to reset chat"})
	}
	log.Printf("[Chat] log reset by station %s", stationID)
	return c.JSON(fiber.Map{"ok": true})
}
