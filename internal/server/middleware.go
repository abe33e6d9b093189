package server

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

// requireAdminBearer guards the operator-facing invite endpoints. With
// no ADMIN_TOKEN configured, the bearer path is disabled outright; the
// client-signed path still works.
func (s *Server) requireAdminBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.config.AdminToken == "" {
			return apperrors.UnavailableError("admin_disabled", "no admin token is configured")
		}

		token := bearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
			return apperrors.UnauthorizedError("unauthorized", "invalid admin token")
		}
		return next(c)
	}
}

// bearerToken extracts the Authorization bearer credential, falling
// back to the token query parameter for clients that cannot set
// headers (browser WebSocket).
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.QueryParam("token"))
}
