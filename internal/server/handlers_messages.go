package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

type createMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleListMessages(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.ValidationError("invalid_limit", "limit must be an integer")
		}
		limit = parsed
	}

	messages, err := s.state.ListMessages(c.Request().Context(), bearerToken(c), c.Param("channelID"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleCreateMessage(c echo.Context) error {
	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	message, err := s.state.CreateMessage(c.Request().Context(), bearerToken(c), c.Param("channelID"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, message)
}

func (s *Server) handleEditMessage(c echo.Context) error {
	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	message, err := s.state.EditMessage(c.Request().Context(), bearerToken(c), c.Param("channelID"), c.Param("messageID"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message)
}
