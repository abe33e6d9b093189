package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/coppice-chat/coppice/internal/config"
	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/livekit"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/server"
	"github.com/coppice-chat/coppice/internal/state"
)

func setupConfig() *config.Config {
	// Missing .env is fine in production; config comes from the
	// environment there.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		slog.Error("Failed to create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	path := cfg.DatabasePath
	if path == "" {
		path = filepath.Join(cfg.DataDir, "coppice.db")
	}

	db, err := database.Open(path)
	if err != nil {
		slog.Error("Failed to open database", "path", path, "error", err)
		os.Exit(1)
	}
	return db
}

func setupProfile(cfg *config.Config) *config.ServerProfile {
	path := filepath.Join(cfg.DataDir, "server.json")
	profile, err := config.LoadOrCreateProfile(path, cfg.ServerName)
	if err != nil {
		slog.Error("Failed to load server profile", "path", path, "error", err)
		os.Exit(1)
	}
	return profile
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "addr", cfg.Addr)

	db := setupDB(cfg)
	defer func() { _ = db.Close() }()

	profile := setupProfile(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := state.New(ctx, cfg, profile, db, clock)
	cancel()
	if err != nil {
		slog.Error("Failed to initialize server state", "error", err)
		os.Exit(1)
	}

	info := st.ServerInfo()
	slog.Info("Server identity ready",
		"server_id", info.ServerID,
		"fingerprint", info.ServerFingerprint,
		"channels", len(st.Channels()),
	)

	tokens := livekit.NewTokenIssuer(cfg.MediaRouterKey, cfg.MediaRouterSecret)
	if !tokens.Enabled() {
		slog.Warn("Media router credentials not configured, voice joins will be unavailable")
	}

	srv := server.NewServer(cfg, st, db, tokens, clock)
	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
