package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public server identity
	s.echo.GET("/api/server-info", s.handleServerInfo)
	s.echo.GET("/api/channels", s.handleChannels)

	// Invite handshake (rate limited per IP; the only unauthenticated
	// write surface)
	limiter := newRateLimiter(s.config.BeginRatePerSec, s.config.BeginRateBurst)
	s.echo.POST("/api/connect/begin", s.handleBeginConnect, limiter)
	s.echo.POST("/api/connect/finish", s.handleFinishConnect, limiter)

	// Admin invite management: bearer path and client-signed path
	s.echo.POST("/api/admin/invites", s.handleCreateInvite, s.requireAdminBearer)
	s.echo.GET("/api/admin/invites", s.handleListInvites, s.requireAdminBearer)
	s.echo.POST("/api/admin/invites/client-signed", s.handleCreateInviteClientSigned)
	s.echo.POST("/api/admin/invites/list/client-signed", s.handleListInvitesClientSigned)

	// Text channels (session authenticated inside the coordinator)
	s.echo.GET("/api/channels/:channelID/messages", s.handleListMessages)
	s.echo.POST("/api/channels/:channelID/messages", s.handleCreateMessage)
	s.echo.PATCH("/api/channels/:channelID/messages/:messageID", s.handleEditMessage)
	s.echo.GET("/api/channels/:channelID/stream", s.handleChannelStream)

	// Voice presence
	s.echo.POST("/api/voice/:channelID/join", s.handleVoiceJoin)
	s.echo.POST("/api/voice/:channelID/presence", s.handleVoicePresence)
	s.echo.POST("/api/voice/leave", s.handleVoiceLeave)
	s.echo.GET("/api/voice/:channelID/state", s.handleVoiceState)
}
