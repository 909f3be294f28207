package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/api/http/handlers"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Tickets        *handlers.TicketsHandler
	Files          *handlers.FilesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	if cfg.Files != nil {
		app.Get("/files", cfg.Files.Download)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)

	managerOnly := auth.RequireRole(domain.RoleManager)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me", cfg.Accounts.Me)
	users.Patch("/me", cfg.Accounts.UpdateMe)
	users.Post("/me/avatar", cfg.Accounts.UploadAvatar)
	users.Patch("/:id/role", managerOnly, cfg.Accounts.ChangeRole)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.Submit)
	tickets.Get("/history", cfg.Tickets.History)
	tickets.Get("/pending", managerOnly, cfg.Tickets.Pending)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", managerOnly, cfg.Tickets.Process)
	tickets.Post("/:id/receipts", cfg.Tickets.AttachReceipt)
}
