package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pobyzaarif/goshortcute"
)

// AdminAuth guards the management routes with HTTP basic auth.
func AdminAuth(username, password string) echo.MiddlewareFunc {
	expected := []byte("Basic " + goshortcute.StringtoBase64Encode(username+":"+password))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="admin"`)
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			if subtle.ConstantTimeCompare([]byte(authHeader), expected) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
			}

			return next(c)
		}
	}
}
