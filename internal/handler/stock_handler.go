package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"
)

type StockHandler struct {
	stock *service.StockService
}

func NewStockHandler(stock *service.StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

// GetCatalog returns the station's full catalog.
// GET /api/v1/stations/:id/stock
func (h *StockHandler) GetCatalog(c *fiber.Ctx) error {
	stationID := c.Params("id")
	catalog := h.stock.Load(c.Context(), stationID)
	return c.JSON(fiber.Map{"station_id": stationID, "catalog": catalog})
}

// GetAvailable returns the items of a category that still have stock.
// GET /api/v1/stations/:id/stock/available?category=milk
func (h *StockHandler) GetAvailable(c *fiber.Ctx) error {
	stationID := c.Params("id")
	category := c.Query("category")
	if category == "" {
		return c.Status(400).JSON(fiber.Map{"error": "category query parameter is required"})
	}
	items := h.stock.Available(c.Context(), stationID, category)
	return c.JSON(fiber.Map{"station_id": stationID, "category": category, "items": items})
}

// UpdateAmount sets an item's amount (clamped to [0, capacity]).
// PUT /api/v1/stations/:id/stock/:category/:itemId/amount
func (h *StockHandler) UpdateAmount(c *fiber.Ctx) error {
	stationID := c.Params("id")
	category := c.Params("category")
	itemID := c.Params("itemId")

	var req model.UpdateAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if !h.stock.UpdateAmount(c.Context(), stationID, category, itemID, req.Amount) {
		return c.Status(404).JSON(fiber.Map{"error": "unknown category or item"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Restock sets an item back to full capacity.
// POST /api/v1/stations/:id/stock/:category/:itemId/restock
func (h *StockHandler) Restock(c *fiber.Ctx) error {
	stationID := c.Params("id")
	category := c.Params("category")
	itemID := c.Params("itemId")

	if !h.stock.RestockFull(c.Context(), stationID, category, itemID) {
		return c.Status(404).JSON(fiber.Map{"error": "unknown category or item"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// AddItem appends a new item to a category.
// POST /api/v1/stations/:id/stock/:category/items
func (h *StockHandler) AddItem(c *fiber.Ctx) error {
	stationID := c.Params("id")
	category := c.Params("category")

	var req model.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ID == "" || req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "id and name are required"})
	}
	if req.Capacity <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "capacity must be positive"})
	}
	if req.CriticalThreshold < 0 || req.CriticalThreshold > req.LowThreshold || req.LowThreshold > req.Capacity {
		return c.Status(400).JSON(fiber.Map{"error": "thresholds must satisfy 0 <= critical <= low <= capacity"})
	}

	if !h.stock.AddItem(c.Context(), stationID, category, req) {
		return c.Status(409).JSON(fiber.Map{"error": "item already exists"})
	}
	log.Printf("[Stock] added %s/%s/%s", stationID, category, req.ID)
	return c.Status(201).JSON(fiber.Map{"ok": true})
}

// DeleteItem removes an item from a category.
// DELETE /api/v1/stations/:id/stock/:category/items/:itemId
func (h *StockHandler) DeleteItem(c *fiber.Ctx) error {
	stationID := c.Params("id")
	category := c.Params("category")
	itemID := c.Params("itemId")

	if !h.stock.DeleteItem(c.Context(), stationID, category, itemID) {
		return c.Status(404).JSON(fiber.Map{"error": "unknown category or item"})
	}
	log.Printf("[Stock] deleted %s/%s/%s", stationID, category, itemID)
	return c.JSON(fiber.Map{"ok": true})
}

// Reset overwrites the station's catalog with the default template.
// POST /api/v1/stations/:id/stock/reset
func (h *StockHandler) Reset(c *fiber.Ctx) error {
	stationID := c.Params("id")
	catalog := h.stock.Reset(c.Context(), stationID)
	log.Printf("[Stock] reset %s to defaults", stationID)
	return c.JSON(fiber.Map{"station_id": stationID, "catalog": catalog})
}
