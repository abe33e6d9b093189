package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/state"
)

func (s *Server) handleCreateInvite(c echo.Context) error {
	var req state.CreateInviteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	result, err := s.state.CreateInvite(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListInvites(c echo.Context) error {
	invites, err := s.state.ListInvites(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"invites": invites})
}

func (s *Server) handleCreateInviteClientSigned(c echo.Context) error {
	var req state.AdminCreateInviteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	result, err := s.state.CreateInviteByAdmin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListInvitesClientSigned(c echo.Context) error {
	var req state.AdminSignedRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	invites, err := s.state.ListInvitesByAdmin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"invites": invites})
}
