package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/wfm/task-system/internal/api/handler"
	"github.com/wfm/task-system/internal/api/middleware"
	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/ports"

	_ "github.com/wfm/task-system/docs" // registers the swagger spec
)

// Deps carries everything the router needs to serve requests.
type Deps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Projects ports.ProjectService
	Tasks    ports.TaskService
	Comments ports.CommentService

	// AuthLimiter throttles /auth/*; nil disables rate limiting.
	AuthLimiter middleware.Limiter
	// Readiness lists the dependencies pinged by /health/ready.
	Readiness map[string]handler.Pinger

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.Recover())

	// --- Auth routes (public, rate limited) ---
	authHandler := handler.NewAuthHandler(d.Auth)
	authGroup := e.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(middleware.RateLimit(d.AuthLimiter, "auth", d.Logger))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh-token", authHandler.RefreshToken)

	// --- Protected API ---
	apiGroup := e.Group("/api", middleware.Auth(d.Auth))

	projectHandler := handler.NewProjectHandler(d.Projects)
	apiGroup.POST("/projects", projectHandler.Create)
	apiGroup.GET("/projects/my", projectHandler.ListMine)
	apiGroup.GET("/projects/search", projectHandler.Search)
	apiGroup.GET("/projects/:id", projectHandler.Get)
	apiGroup.PUT("/projects/:id", projectHandler.Update)
	apiGroup.DELETE("/projects/:id", projectHandler.Delete)

	taskHandler := handler.NewTaskHandler(d.Tasks)
	apiGroup.POST("/tasks", taskHandler.Create)
	apiGroup.GET("/tasks/:id", taskHandler.Get)
	apiGroup.PATCH("/tasks/:id", taskHandler.Update)
	apiGroup.DELETE("/tasks/:id", taskHandler.Delete)
	apiGroup.GET("/tasks/project/:projectId", taskHandler.ListByProject)
	apiGroup.GET("/tasks/project/:projectId/status/:status", taskHandler.ListByProjectAndStatus)

	commentHandler := handler.NewCommentHandler(d.Comments)
	apiGroup.POST("/comments", commentHandler.Add)
	apiGroup.GET("/comments/task/:taskId", commentHandler.ListByTask)
	apiGroup.DELETE("/comments/:id", commentHandler.Delete)

	userHandler := handler.NewUserHandler(d.Users)
	apiGroup.GET("/users/me", userHandler.Me)

	adminGroup := apiGroup.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	adminGroup.GET("/users/:id", userHandler.Get)
	adminGroup.PATCH("/users/:id/active", userHandler.SetActive)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
