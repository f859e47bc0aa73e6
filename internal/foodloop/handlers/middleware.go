package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/service"
)

const actorKey = "actor"

// RequireAuth проверяет bearer-токен и кладёт Actor в c.Locals.
func RequireAuth(sessions *service.SessionManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		actor, err := sessions.Resolve(strings.TrimSpace(token))
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// RequireRole пропускает только указанные роли. Ставится после RequireAuth.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := actorFrom(c)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		if !actor.Is(roles...) {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}

func actorFrom(c fiber.Ctx) (service.Actor, bool) {
	actor, ok := c.Locals(actorKey).(service.Actor)
	return actor, ok
}
