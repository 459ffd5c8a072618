package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin rejects callers whose identity does not carry the admin
// flag. It must run after Identity.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CallerFrom(c).Admin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "administrator only"})
			}
			return next(c)
		}
	}
}
