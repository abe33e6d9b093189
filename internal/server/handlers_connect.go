package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/state"
)

type beginConnectRequest struct {
	InviteID string `json:"inviteId"`
}

func (s *Server) handleBeginConnect(c echo.Context) error {
	var req beginConnectRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	result, err := s.state.BeginConnect(c.Request().Context(), req.InviteID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleFinishConnect(c echo.Context) error {
	var req state.FinishConnectRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	result, err := s.state.FinishConnect(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
