package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/taskhub/task-tracker/internal/api/handler"
	"github.com/taskhub/task-tracker/internal/api/middleware"
	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/infrastructure/http/handlers"

	_ "github.com/taskhub/task-tracker/docs"
)

// Dependencies is everything the router needs; cmd/server builds it.
type Dependencies struct {
	JWTSecret      string
	AllowedOrigins []string

	Tasks  ports.TaskService
	Users  ports.UserService
	Auth   ports.AuthService
	Stream handler.StreamServer

	// HealthChecks are probed by /health/ready, keyed by dependency name.
	HealthChecks map[string]handlers.Check

	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// process-wide default registry, which also holds the broadcast metrics.
	Registry *prometheus.Registry

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	promCfg := echoprometheus.MiddlewareConfig{
		Namespace: "tasktracker",
		Skipper:   skipStreamingAndMetrics,
	}
	metricsHandler := echoprometheus.NewHandler()
	if deps.Registry != nil {
		promCfg.Registerer = deps.Registry
		metricsHandler = echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Registry})
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))
	if len(deps.AllowedOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: deps.AllowedOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "Idempotency-Key"},
		}))
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	taskHandler := handler.NewTaskHandler(deps.Tasks)
	userHandler := handler.NewUserHandler(deps.Users)
	streamHandler := handler.NewStreamHandler(deps.Stream)

	authMiddleware := middleware.Auth(deps.JWTSecret)
	adminOnly := middleware.AdminOnly()

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Task routes ---
	tasks := e.Group("/tasks", authMiddleware)
	tasks.POST("", taskHandler.Create, adminOnly)
	tasks.GET("", taskHandler.List, adminOnly)
	tasks.GET("/my-tasks", taskHandler.ListMine)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PUT("/:id", taskHandler.Update, adminOnly)
	tasks.DELETE("/:id", taskHandler.Delete, adminOnly)
	tasks.PATCH("/:id/status", taskHandler.UpdateStatus)

	// --- User routes ---
	users := e.Group("/users", authMiddleware)
	users.GET("", userHandler.List, adminOnly)
	users.POST("", userHandler.Create, adminOnly)
	users.PUT("/profile", userHandler.UpdateProfile)
	users.GET("/:id", userHandler.Get, adminOnly)
	users.DELETE("/:id", userHandler.Delete, adminOnly)

	// --- Event stream ---
	e.GET("/ws", streamHandler.Stream, authMiddleware)

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func skipStreamingAndMetrics(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/ws" || p == "/metrics" || strings.HasPrefix(p, "/swagger/")
}

// requestLogger emits one structured line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper:      func(c echo.Context) bool { return c.Request().URL.Path == "/metrics" },
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
