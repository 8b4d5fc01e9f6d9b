// Package auth guards destructive admin routes with a static API key.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Middleware checks the admin API key on every request it wraps. The
// key arrives in the Authorization header (with or without a Bearer
// prefix) or a ?token= query parameter. An empty configured key
// disables the guard, which is the normal single-user local setup.
func Middleware(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			// Get the key from the Authorization header or query parameter
			token := c.Request().Header.Get("Authorization")
			if token != "" {
				if len(token) > 7 && token[:7] == "Bearer " {
					token = token[7:]
				}
			} else {
				token = c.QueryParam("token")
			}

			if token == "" || token != apiKey {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized. Admin API key required.",
				})
			}

			return next(c)
		}
	}
}
