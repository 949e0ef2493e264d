package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	Complaints     *handlers.ComplaintsHandler
	Records        *handlers.RecordsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Session.CitizenLogin)
	authGroup.Post("/staff/login", cfg.Session.OfficerLogin)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Session.Logout)

	session := app.Group("/session", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	session.Put("/locale", cfg.Session.SetLocale)

	complaints := app.Group("/complaints", cfg.AuthMiddleware.Handle, auth.RequireCitizen())
	complaints.Post("/", cfg.Complaints.Submit)
	complaints.Get("/", cfg.Complaints.List)

	records := app.Group("/records", cfg.AuthMiddleware.Handle, auth.RequireOfficer())
	records.Get("/", cfg.Records.List)
	records.Post("/sync", cfg.Records.Sync)
	records.Get("/:id", cfg.Records.Get)
	records.Post("/:id/analyze", cfg.Records.Analyze)
	records.Put("/:id/draft", cfg.Records.EditDraft)
	records.Post("/:id/dispatch", cfg.Records.Dispatch)
}
