// Package server is the HTTP transport: an echo server exposing the
// coordinator's operations as a JSON API plus one WebSocket endpoint
// for live channel events.
package server

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coppice-chat/coppice/internal/config"
	"github.com/coppice-chat/coppice/internal/database"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/livekit"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/state"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	state     *state.State
	db        *database.DB
	tokens    *livekit.TokenIssuer
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, st *state.State, db *database.DB, tokens *livekit.TokenIssuer, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		state:     st,
		db:        db,
		tokens:    tokens,
		clock:     clock,
		startTime: clock.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	logging.Logger.Info("Starting server", "addr", s.config.Addr)
	return s.echo.Start(s.config.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.state.Shutdown()
	return s.echo.Shutdown(ctx)
}
