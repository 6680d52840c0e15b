package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fruithappens/Coffeecue-sub003/internal/model"
	"github.com/fruithappens/Coffeecue-sub003/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	chat     *service.ChatManager
}

func NewProfileHandler(profiles *service.ProfileService, chat *service.ChatManager) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, chat: chat}
}

// GetProfile returns the station's identity configuration.
// GET /api/v1/stations/:id/profile
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	return c.JSON(h.profiles.Get(c.Context(), c.Params("id")))
}

// PutProfile stores the station's identity configuration and re-stamps the
// station's chat channel so subsequent messages carry the new identity.
// PUT /api/v1/stations/:id/profile
func (h *ProfileHandler) PutProfile(c *fiber.Ctx) error {
	stationID := c.Params("id")

	var p model.StationProfile
	if err := c.BodyParser(&p); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	p.StationID = stationID
	if p.StationName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "station_name is required"})
	}

	if err := h.profiles.Set(c.Context(), p); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to store profile"})
	}
	h.chat.Refresh(c.Context(), stationID)
	return c.JSON(p)
}
