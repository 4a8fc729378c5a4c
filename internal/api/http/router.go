package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/felipe-nonato/task-manager/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes. Every endpoint is open; the API carries
// no session or authorization model.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/register", cfg.Users.Register)
	app.Post("/login", cfg.Users.Login)
	app.Get("/users", cfg.Users.List)

	app.Post("/tickets", cfg.Tickets.Create)
	app.Get("/tickets", cfg.Tickets.List)
	app.Post("/tickets/atr", cfg.Tickets.ReceiveATR)
}
