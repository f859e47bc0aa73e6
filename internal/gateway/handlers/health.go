package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Health Check Handlers
// ============================================================

type Health struct {
	upstream string
	client   *http.Client
	log      *zap.Logger
}

func NewHealth(upstream string, log *zap.Logger) *Health {
	return &Health{
		upstream: strings.TrimRight(upstream, "/"),
		client:   &http.Client{Timeout: 2 * time.Second},
		log:      log,
	}
}

// LivenessProbe проверяет, что приложение работает
func (h *Health) LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// ReadinessProbe готов, только если готов API за шлюзом
func (h *Health) ReadinessProbe(c fiber.Ctx) error {
	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, h.upstream+"/health/ready", nil)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Warn("upstream not ready", zap.Error(err))
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "upstream unavailable"})
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "upstream not ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// StartupProbe проверяет, что приложение успешно запустилось
func (h *Health) StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "started"})
}
