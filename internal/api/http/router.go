package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/campus-nfc/card-service/internal/api/http/handlers"
	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Me             *handlers.MeHandler
	Staff          *handlers.StaffHandler
	Admin          *handlers.AdminHandler
	Departments    *handlers.DepartmentHandler
	History        *handlers.HistoryHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}
	app.Get("/departments", cfg.Departments.List)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	signedIn := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	signedIn.Post("/logout", cfg.Auth.Logout)
	signedIn.Post("/password/change", cfg.Auth.ChangePassword)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	me.Get("", cfg.Me.Profile)
	me.Get("/card", auth.RequireUsable(), cfg.Me.Card)
	me.Get("/photo", auth.RequireUsable(), cfg.Me.Photo)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireUsable(), auth.RequireRole(domain.RoleStaff))
	staff.Get("/students", cfg.Staff.ListStudents)
	staff.Post("/students/transitions", cfg.Staff.ApplyTransition)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireUsable(), auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Post("/users/transitions", cfg.Admin.ApplyTransition)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/users/:id/nfc", cfg.Admin.AssignNFC)
	if cfg.History != nil {
		admin.Get("/users/:id/history", cfg.History.List)
	}
	admin.Put("/staff/:id/approval-permission", cfg.Admin.SetApprovalPermission)

	admin.Get("/departments", cfg.Admin.ListDepartments)
	admin.Post("/departments", cfg.Admin.CreateDepartment)
	admin.Get("/departments/:id", cfg.Admin.GetDepartment)
	admin.Put("/departments/:id", cfg.Admin.UpdateDepartment)
}
