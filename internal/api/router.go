package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/unrolled/secure"

	_ "github.com/rolegate/authd/docs"
	"github.com/rolegate/authd/internal/api/handler"
	"github.com/rolegate/authd/internal/api/middleware"
	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

// Dependencies are the collaborators the router mounts. Users is nil in
// stateless mode, which leaves the user management routes unmounted.
type Dependencies struct {
	Authenticator ports.Authenticator
	Users         ports.UserService
	Checks        map[string]handler.DependencyCheck
	Production    bool
	Log           zerolog.Logger
	// Registry receives the HTTP metrics. Nil uses the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	headers := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
		IsDevelopment:      !deps.Production,
	})

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echo.WrapMiddleware(headers.Handler))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "authd",
		Registerer: registerer,
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Checks).Readiness)

	// --- Auth routes ---
	auth := e.Group("/auth", middleware.Authenticate(deps.Authenticator, deps.Log))
	auth.GET("/me", handler.Me, middleware.RequireAuthenticated())

	if deps.Users == nil {
		return e
	}

	h := handler.NewAuthHandler(deps.Users)
	auth.POST("/login", h.Login)
	auth.POST("/register", h.Register, middleware.RequirePermission(domain.PermUserCreate))
	auth.DELETE("/user", h.DeleteUser, middleware.RequirePermission(domain.PermUserDelete))
	auth.PUT("/user/permissions", h.UpdatePermissions, middleware.RequirePermission(domain.PermUserPermissionsAssign))
	// Self-or-all checks need the target email from the body.
	auth.PUT("/user/reset_password", h.ResetPassword)
	auth.POST("/user", h.GetUser)

	return e
}
