package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"canales-taurinos/internal/api/middleware"
	"canales-taurinos/internal/catalog"
	"canales-taurinos/pkg/models"
)

// AmericaCitiesHandler lists the cities with America events
func AmericaCitiesHandler(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		cities := cat.Cities(c.Request().Context())
		return c.JSON(http.StatusOK, models.RegionalResponse{
			Region:    "america",
			Cities:    cities,
			Events:    []models.RegionalEvent{},
			Count:     len(cities),
			RequestID: middleware.RequestID(c),
		})
	}
}

// AmericaCityHandler matches :city as a case-insensitive substring
func AmericaCityHandler(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		city, events, ok := cat.EventsForCity(c.Request().Context(), c.Param("city"))
		if !ok {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:     "city_not_found",
				Message:   "No events for city: " + c.Param("city"),
				RequestID: middleware.RequestID(c),
				Timestamp: time.Now(),
			})
		}
		return c.JSON(http.StatusOK, models.RegionalResponse{
			Region:    "america",
			City:      city,
			Events:    events,
			Count:     len(events),
			RequestID: middleware.RequestID(c),
		})
	}
}

// SevillaHandler returns the Sevilla events; ?upcoming=true drops past ones
func SevillaHandler(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var events []models.RegionalEvent
		if upcoming, _ := strconv.ParseBool(c.QueryParam("upcoming")); upcoming {
			events = cat.UpcomingSevilla(ctx, time.Now())
		} else {
			events = cat.SevillaEvents(ctx)
		}
		return c.JSON(http.StatusOK, models.RegionalResponse{
			Region:    "sevilla",
			Events:    events,
			Count:     len(events),
			RequestID: middleware.RequestID(c),
		})
	}
}
