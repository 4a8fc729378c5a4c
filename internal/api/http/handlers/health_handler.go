package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe-nonato/task-manager/internal/persistence"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	pg    *persistence.Postgres
	redis *persistence.Redis
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(pg *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{pg: pg, redis: redis}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Postgres is required; Redis is reported
// but only degrades the response since the throttle it backs is best-effort.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx := c.UserContext()

	redisStatus := "ok"
	if err := h.redis.Ping(ctx); err != nil {
		redisStatus = "unavailable"
	}

	if err := h.pg.Ping(ctx); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unavailable",
			"postgres": "unavailable",
			"redis":    redisStatus,
		})
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"postgres": "ok",
		"redis":    redisStatus,
	})
}
