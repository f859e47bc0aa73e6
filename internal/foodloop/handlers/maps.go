package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/roles"
	"foodloop/internal/foodloop/service"
)

// ============================================================
// Map Handler
// ============================================================

type MapHandler struct {
	maps *service.MapService
	log  *zap.Logger
}

func NewMapHandler(maps *service.MapService, log *zap.Logger) *MapHandler {
	return &MapHandler{maps: maps, log: log}
}

func (h *MapHandler) Locations(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	pins, err := h.maps.Locations(c.Context(), actor, models.Role(c.Query("role")))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(pins)
}

// Route строит маршрут между from и to ("lat,lng").
func (h *MapHandler) Route(c fiber.Ctx) error {
	from, err := service.ParsePoint(c.Query("from"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	to, err := service.ParsePoint(c.Query("to"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(service.PlanRoute(from, to))
}

// Roles отдаёт конфигурации карт для всех ролей.
func (h *MapHandler) Roles(c fiber.Ctx) error {
	return c.JSON(roles.All())
}
