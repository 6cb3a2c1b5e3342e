package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"canales-taurinos/pkg/models"
	"canales-taurinos/pkg/utils"
)

const requestIDKey = "request_id"

// RequestContext assigns every request an id, honoring one sent by a proxy,
// and rejects oversized bodies.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = utils.GenerateRequestID()
			}
			c.Set(requestIDKey, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			if c.Request().ContentLength > 1024*1024 { // 1MB limit
				return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
					Error:     "request_too_large",
					Message:   "Request body too large",
					RequestID: requestID,
					Timestamp: time.Now(),
				})
			}

			return next(c)
		}
	}
}

// RequestID returns the id assigned by RequestContext
func RequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// AdminToken guards administrative routes. An empty token leaves them open.
func AdminToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			given := c.Request().Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:     "unauthorized",
					Message:   "Missing or invalid admin token",
					RequestID: RequestID(c),
					Timestamp: time.Now(),
				})
			}
			return next(c)
		}
	}
}
