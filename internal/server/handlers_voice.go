package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

type voiceJoinResponse struct {
	RoomName       string `json:"roomName"`
	MediaRouterURL string `json:"mediaRouterUrl"`
	Token          string `json:"token"`
}

func (s *Server) handleVoiceJoin(c echo.Context) error {
	join, err := s.state.BeginVoiceJoin(c.Request().Context(), bearerToken(c), c.Param("channelID"))
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueVoiceToken(join.RoomName, join.Identity.PublicKey, join.Identity.DisplayName)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, voiceJoinResponse{
		RoomName:       join.RoomName,
		MediaRouterURL: s.config.MediaRouterURL,
		Token:          token,
	})
}

func (s *Server) handleVoicePresence(c echo.Context) error {
	var update domain.VoicePresenceUpdate
	if err := c.Bind(&update); err != nil {
		return apperrors.ValidationError("invalid_body", "request body must be JSON")
	}

	if err := s.state.TouchVoicePresence(c.Request().Context(), bearerToken(c), c.Param("channelID"), update); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleVoiceLeave(c echo.Context) error {
	if err := s.state.LeaveVoice(c.Request().Context(), bearerToken(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleVoiceState(c echo.Context) error {
	voiceState, err := s.state.GetVoiceChannelState(c.Request().Context(), bearerToken(c), c.Param("channelID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, voiceState)
}
