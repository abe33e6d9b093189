package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleServerInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.ServerInfo())
}

func (s *Server) handleChannels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"channels": s.state.Channels(),
	})
}
