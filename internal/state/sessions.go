package state

import (
	"context"
	"errors"
	"strings"

	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/metrics"
)

// AuthenticateSession resolves a session token to the member behind it.
// Expired sessions are swept first, so an expired token and an unknown
// token are indistinguishable to the caller.
func (s *State) AuthenticateSession(ctx context.Context, token string) (domain.SessionIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticateSessionLocked(ctx, token)
}

func (s *State) authenticateSessionLocked(ctx context.Context, token string) (domain.SessionIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionIdentity{}, apperrors.UnauthorizedError("invalid_session_token", "session token is missing or invalid")
	}

	swept, err := s.sessions.DeleteExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("sweep_sessions").Inc()
		return domain.SessionIdentity{}, apperrors.InternalError("sweep sessions", err)
	}
	if swept > 0 {
		metrics.SessionsSweptTotal.Add(float64(swept))
		logging.Logger.Debug("Swept expired sessions", "count", swept)
	}

	identity, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.SessionIdentity{}, apperrors.UnauthorizedError("invalid_session_token", "session token is missing or invalid")
		}
		metrics.DBErrorsTotal.WithLabelValues("lookup_session").Inc()
		return domain.SessionIdentity{}, apperrors.InternalError("look up session", err)
	}
	return identity, nil
}
