package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"canales-taurinos/internal/api/handlers"
	"canales-taurinos/internal/api/middleware"
	"canales-taurinos/internal/background"
	"canales-taurinos/internal/catalog"
	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/source"
)

// Deps are the components served over HTTP. Scheduler is nil when
// scheduled runs are disabled.
type Deps struct {
	Registry  *source.Registry
	Catalog   *catalog.Catalog
	Store     handlers.Pinger
	Scheduler *background.Scheduler
	Logger    logging.Logger
	Version   string
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, deps Deps) {
	logger := deps.Logger.WithField("component", "api")

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestContext())
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSConfig())
	e.Use(middleware.TimeoutConfig(cfg.Server.RequestTimeout))

	admin := middleware.AdminToken(cfg.Server.AdminToken)

	var schedulerHealth handlers.HealthChecker
	if deps.Scheduler != nil {
		schedulerHealth = deps.Scheduler
	}

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler(deps.Version))
		health.GET("/live", handlers.LivenessHandler(deps.Version))
		health.GET("/ready", handlers.ReadinessHandler(deps.Version, deps.Store, schedulerHealth, logger))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		sources := v1.Group("/sources")
		{
			sources.GET("", handlers.ListSourcesHandler(deps.Registry))
			sources.GET("/:source", handlers.GetSourceHandler(deps.Registry, logger))

			// Administrative triggers
			sources.POST("/:source/refresh", handlers.RefreshSourceHandler(deps.Registry, logger), admin)
			sources.DELETE("/:source/cache", handlers.ClearCacheHandler(deps.Registry, logger), admin)
			sources.POST("/:source/scheduled", handlers.RunScheduledHandler(deps.Registry), admin)
		}

		if deps.Scheduler != nil {
			v1.GET("/scheduler/runs", handlers.SchedulerRunsHandler(deps.Scheduler.History()), admin)
		}

		if deps.Catalog != nil {
			regional := v1.Group("/regional")
			{
				regional.GET("/america", handlers.AmericaCitiesHandler(deps.Catalog))
				regional.GET("/america/:city", handlers.AmericaCityHandler(deps.Catalog))
				regional.GET("/sevilla", handlers.SevillaHandler(deps.Catalog))
			}
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Canales Taurinos",
			"version": deps.Version,
			"status":  "running",
		})
	})
}

// requestLogger sends one structured entry per request through the
// application logger instead of echo's own writer
func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": middleware.RequestID(c),
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
				logger.Warn("Request failed", fields)
				return nil
			}
			logger.Info("Request handled", fields)
			return nil
		},
	})
}
