package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nxdesk/sla-service/internal/api/http/handlers"
	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/domain"
)

// RouteConfig bundles dependencies for the backend routes.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires the SLA backend routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/auth/token", cfg.Auth.IssueToken)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireSubject())
	tickets.Get("/:id/status", cfg.Tickets.GetStatus)
	tickets.Patch("/:id/status", auth.RequireSubject(domain.SubjectTypeClient), cfg.Tickets.UpdateStatus)
	tickets.Get("/:id/sla", cfg.Tickets.GetSLA)
	tickets.Post("/:id/sla/breach", cfg.Tickets.ReportBreach)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
}

// SlawatchRouteConfig bundles dependencies for the engine host routes.
type SlawatchRouteConfig struct {
	Health   *handlers.HealthHandler
	Sessions *handlers.SessionsHandler
}

// RegisterSlawatchRoutes wires the session routes served by slawatch.
func RegisterSlawatchRoutes(app *fiber.App, cfg SlawatchRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	sessions := app.Group("/sessions")
	sessions.Put("/:session", cfg.Sessions.Mount)
	sessions.Get("/:session", cfg.Sessions.Display)
	sessions.Post("/:session/status", cfg.Sessions.StatusChanged)
	sessions.Delete("/:session", cfg.Sessions.Unmount)
}
