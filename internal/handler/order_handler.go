package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"
)

type OrderHandler struct {
	engine *service.DepletionEngine
}

func NewOrderHandler(engine *service.DepletionEngine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

type completeOrderRequest struct {
	StationID string `json:"station_id"`
	model.OrderCompletion
}

// CompleteOrder is the callback the external order scheduler invokes when an
// order finishes. Depletion is advisory: the response enumerates what was
// and wasn't decremented, but the request itself never fails on stock-outs.
// POST /api/v1/server/orders/complete
func (h *OrderHandler) CompleteOrder(c *fiber.Ctx) error {
	var req completeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.StationID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "station_id is required"})
	}
	if req.Shots < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "shots must not be negative"})
	}

	result := h.engine.Consume(c.Context(), req.StationID, req.OrderCompletion)
	log.Printf("[Depletion] order=%s station=%s applied=%t", req.OrderID, req.StationID, result.Applied())
	return c.JSON(fiber.Map{"applied": result.Applied(), "result": result})
}
