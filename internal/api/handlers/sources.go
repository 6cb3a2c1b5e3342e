package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"canales-taurinos/internal/api/middleware"
	"canales-taurinos/internal/background"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/models"
)

func sourceNotFound(c echo.Context, name string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:     "source_not_found",
		Message:   "Unknown source: " + name,
		RequestID: middleware.RequestID(c),
		Timestamp: time.Now(),
	})
}

// ListSourcesHandler returns the status of every registered source
func ListSourcesHandler(reg *source.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		all := reg.All()
		statuses := make([]models.SourceStatus, 0, len(all))
		for _, h := range all {
			statuses = append(statuses, h.Status(ctx))
		}
		return c.JSON(http.StatusOK, models.SourcesResponse{
			Sources:   statuses,
			RequestID: middleware.RequestID(c),
		})
	}
}

// GetSourceHandler is the consumer read. A failed scrape still answers 200
// with whatever data is available, possibly none, and the outcome.
func GetSourceHandler(reg *source.Registry, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("source")
		h, ok := reg.Get(name)
		if !ok {
			return sourceNotFound(c, name)
		}

		startTime := time.Now()
		resp := h.Read(c.Request().Context())
		resp.RequestID = middleware.RequestID(c)

		logger.Debug("Source read", map[string]interface{}{
			"request_id":      resp.RequestID,
			"source":          name,
			"origin":          resp.Origin,
			"count":           resp.Count,
			"processing_time": time.Since(startTime).String(),
		})
		return c.JSON(http.StatusOK, resp)
	}
}

// RefreshSourceHandler forces a refresh regardless of freshness
func RefreshSourceHandler(reg *source.Registry, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("source")
		h, ok := reg.Get(name)
		if !ok {
			return sourceNotFound(c, name)
		}

		requestID := middleware.RequestID(c)
		logger.Info("Forced refresh requested", map[string]interface{}{
			"request_id": requestID,
			"source":     name,
		})

		resp := h.ForceRefresh(c.Request().Context())
		resp.RequestID = requestID

		logger.Info("Forced refresh finished", map[string]interface{}{
			"request_id": requestID,
			"source":     name,
			"outcome":    resp.Outcome,
			"count":      resp.Count,
		})
		return c.JSON(http.StatusOK, resp)
	}
}

// ClearCacheHandler drops the in-memory entry of a source
func ClearCacheHandler(reg *source.Registry, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("source")
		h, ok := reg.Get(name)
		if !ok {
			return sourceNotFound(c, name)
		}

		h.ClearCache()
		requestID := middleware.RequestID(c)
		logger.Info("Cache cleared on request", map[string]interface{}{
			"request_id": requestID,
			"source":     name,
		})
		return c.JSON(http.StatusOK, map[string]interface{}{
			"source":     name,
			"cleared":    true,
			"request_id": requestID,
		})
	}
}

// RunScheduledHandler runs the interval-gated refresh of one source
func RunScheduledHandler(reg *source.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("source")
		h, ok := reg.Get(name)
		if !ok {
			return sourceNotFound(c, name)
		}
		if !h.Scheduled() {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "not_scheduled",
				Message:   "Source does not take part in scheduled runs: " + name,
				RequestID: middleware.RequestID(c),
				Timestamp: time.Now(),
			})
		}

		resp := h.RunScheduled(c.Request().Context())
		resp.RequestID = middleware.RequestID(c)
		return c.JSON(http.StatusOK, resp)
	}
}

// SchedulerRunsHandler lists the recent scheduled runs, newest first
func SchedulerRunsHandler(history *background.RunStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		runs := history.Recent()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"runs":       runs,
			"count":      len(runs),
			"request_id": middleware.RequestID(c),
			"timestamp":  time.Now(),
		})
	}
}
