package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/assignhub/marketplace/docs"
	"github.com/assignhub/marketplace/internal/api/handler"
	"github.com/assignhub/marketplace/internal/api/middleware"
	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// Deps carries the services the HTTP layer is built on.
type Deps struct {
	Assignments ports.AssignmentService
	Finance     ports.FinanceService
	Users       ports.UserService
	Auth        ports.AuthService
	Categories  handler.CategoryLister
	// Readiness maps dependency names to their ping checks.
	Readiness map[string]handler.PingFunc
	JWTSecret string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddleware("marketplace"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	assignmentHandler := handler.NewAssignmentHandler(deps.Assignments)
	adminHandler := handler.NewAdminHandler(deps.Assignments, deps.Finance, deps.Users)
	categoryHandler := handler.NewCategoryHandler(deps.Categories)

	// --- Public routes ---
	e.POST("/auth/register-helper", authHandler.RegisterHelper)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/categories", categoryHandler.List)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret), middleware.LoadActor(deps.Users))

	assignments := v1.Group("/assignments")
	assignments.POST("", assignmentHandler.Create)
	assignments.GET("", assignmentHandler.List)
	assignments.GET("/:id", assignmentHandler.Get)
	assignments.POST("/:id/accept", assignmentHandler.Accept, middleware.RBAC(domain.RoleHelper))
	assignments.POST("/:id/complete", assignmentHandler.Complete, middleware.RBAC(domain.RoleHelper))
	assignments.POST("/:id/approve", assignmentHandler.Approve)
	assignments.POST("/:id/revision", assignmentHandler.RequestRevision)
	assignments.POST("/:id/cancel", assignmentHandler.Cancel)
	assignments.POST("/:id/summary", assignmentHandler.Summary)

	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.PUT("/assignments/:id/payout", adminHandler.SetPayout)
	admin.POST("/assignments/:id/pay", adminHandler.Pay)
	admin.GET("/financial-summary", adminHandler.FinancialSummary)
	admin.PUT("/users/:id/roles", adminHandler.UpdateRoles)
	admin.PUT("/users/:id/status", adminHandler.SetStatus)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/settings/helper-registration", adminHandler.GetRegistration)
	admin.PUT("/settings/helper-registration", adminHandler.SetRegistration)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
