package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"canales-taurinos/internal/api/middleware"
	"canales-taurinos/internal/logging"
	"canales-taurinos/pkg/models"
)

var startTime = time.Now()

// Pinger is anything whose reachability gates readiness; snapshot.Store
// implements it
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether a background component is running
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler handles health check requests
func HealthHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
			Checks: map[string]string{
				"api": "ok",
			},
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "alive",
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
		})
	}
}

// ReadinessHandler is ready once the snapshot store answers. The scheduler
// is reported but never gates readiness.
func ReadinessHandler(version string, store Pinger, scheduler HealthChecker, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"api": "ok"}
		status, code := "ready", http.StatusOK

		if err := store.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", map[string]interface{}{
				"request_id": middleware.RequestID(c),
				"error":      err.Error(),
			})
			checks["storage"] = "unavailable"
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}

		if scheduler != nil {
			if scheduler.IsHealthy() {
				checks["scheduler"] = "running"
			} else {
				checks["scheduler"] = "stopped"
			}
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}
