package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
)

// ============================================================
// Health Check Handlers
// ============================================================

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatsSource interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

type HealthHandler struct {
	db  Pinger
	log *zap.Logger
}

func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// LivenessProbe проверяет, что приложение работает
func (h *HealthHandler) LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// ReadinessProbe проверяет доступность базы
func (h *HealthHandler) ReadinessProbe(c fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.Ping(c.Context()); err != nil {
			h.log.Warn("readiness check failed", zap.Error(err))
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// StartupProbe проверяет, что приложение успешно запустилось
func (h *HealthHandler) StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "started"})
}

// PublicStats отдаёт счётчики для главной страницы.
func PublicStats(src StatsSource, log *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		stats, err := src.Stats(c.Context())
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(stats)
	}
}
