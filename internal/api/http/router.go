package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	TicketActions  *handlers.TicketActionsHandler
	AuditLogs      *handlers.AuditLogsHandler
	Live           *handlers.LiveHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware, auth.RequireAnyRole(), cfg.Users.Me)

	staffOnly := auth.RequireStaff()
	app.Get("/health/metrics", cfg.AuthMiddleware, staffOnly, cfg.Health.Metrics)

	tickets := app.Group("/tickets", cfg.AuthMiddleware, auth.RequireAnyRole())
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/replies", cfg.Tickets.AddReply)
	tickets.Post("/:id/assign", staffOnly, cfg.TicketActions.Assign)
	tickets.Post("/:id/transfer-tech", staffOnly, cfg.TicketActions.TransferToTechnical)
	tickets.Post("/:id/complete", staffOnly, cfg.TicketActions.Complete)
	tickets.Post("/:id/close", staffOnly, cfg.TicketActions.Close)

	audit := app.Group("/audit-logs", cfg.AuthMiddleware, staffOnly)
	audit.Get("/", cfg.AuditLogs.List)
	audit.Get("/options", cfg.AuditLogs.Options)
	audit.Get("/:id", cfg.AuditLogs.Get)

	if cfg.Live != nil {
		app.Get("/ws/tickets/:id", cfg.AuthMiddleware, cfg.Live.Authorize, cfg.Live.Stream())
	}
}
