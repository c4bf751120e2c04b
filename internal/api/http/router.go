package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storm-dispatch/internal/api/http/handlers"
	"github.com/spec-kit/storm-dispatch/internal/auth"
	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Companies      *handlers.CompaniesHandler
	Sessions       *handlers.SessionsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)

	users := protected.Group("/users", auth.RequireRole(domain.RoleAdmin))
	users.Post("", cfg.Auth.CreateUser)
	users.Get("", cfg.Auth.ListUsers)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/timeline", cfg.Tickets.ListTimeline)
	tickets.Get("/:id/segments", cfg.Tickets.ListSegments)
	tickets.Post("/:id/assignments", cfg.Assignments.Assign)
	tickets.Get("/:id/assignments", cfg.Assignments.ListByTicket)

	protected.Post("/assignments/:id/respond", cfg.Assignments.Respond)

	companies := protected.Group("/companies")
	companies.Post("", cfg.Companies.CreateCompany)
	companies.Get("", cfg.Companies.ListCompanies)
	companies.Get("/:id", cfg.Companies.GetCompany)
	companies.Patch("/:id", cfg.Companies.UpdateCompany)
	companies.Post("/:id/crews", cfg.Companies.CreateCrew)
	companies.Get("/:id/crews", cfg.Companies.ListCrews)

	protected.Patch("/crews/:id", cfg.Companies.UpdateCrew)

	grants := protected.Group("/grants", auth.RequireRole(domain.RoleManager))
	grants.Post("", cfg.Companies.GrantAccess)
	grants.Delete("", cfg.Companies.RevokeAccess)
	protected.Get("/users/:id/grants", cfg.Companies.ListGrants)

	sessions := protected.Group("/sessions")
	sessions.Post("", auth.RequireRole(domain.RoleManager), cfg.Sessions.CreateSession)
	sessions.Get("", cfg.Sessions.ListSessions)
	sessions.Get("/:id", cfg.Sessions.GetSession)
	sessions.Post("/:id/end", auth.RequireRole(domain.RoleManager), cfg.Sessions.EndSession)

	issueTypes := protected.Group("/issue-types")
	issueTypes.Post("", auth.RequireRole(domain.RoleManager), cfg.Sessions.CreateIssueType)
	issueTypes.Get("", cfg.Sessions.ListIssueTypes)
}
