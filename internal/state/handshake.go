package state

import (
	"context"
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/metrics"
)

// BeginConnectResult is handed to a client starting a handshake.
type BeginConnectResult struct {
	ServerPublicKey   string    `json:"serverPublicKey"`
	ServerFingerprint string    `json:"serverFingerprint"`
	Challenge         string    `json:"challenge"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// FinishConnectRequest carries the client's signed handshake response.
type FinishConnectRequest struct {
	InviteID        string `json:"inviteId"`
	ClientPublicKey string `json:"clientPublicKey"`
	Challenge       string `json:"challenge"`
	Signature       string `json:"signature"`
	DisplayName     string `json:"displayName"`
}

// FinishConnectResult is the successful handshake outcome: the server's
// identity, the channel list, and a fresh session token.
type FinishConnectResult struct {
	ServerID          string           `json:"serverId"`
	ServerName        string           `json:"serverName"`
	ServerFingerprint string           `json:"serverFingerprint"`
	Channels          []domain.Channel `json:"channels"`
	SessionToken      string           `json:"sessionToken"`
}

// BeginConnect issues a fresh challenge for an unredeemed invite. A
// repeated begin for the same invite replaces the previous challenge.
func (s *State) BeginConnect(ctx context.Context, inviteID string) (BeginConnectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return BeginConnectResult{}, apperrors.ValidationError("missing_invite_id", "inviteId is required")
	}

	invite, err := s.invites.Get(ctx, inviteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return BeginConnectResult{}, apperrors.NotFoundError("invite_not_found", "invite does not exist")
		}
		metrics.DBErrorsTotal.WithLabelValues("get_invite").Inc()
		return BeginConnectResult{}, apperrors.InternalError("look up invite", err)
	}
	if invite.UsedAt != nil {
		return BeginConnectResult{}, apperrors.ForbiddenError("invite_used", "invite has already been used")
	}

	challenge, err := randomBytes(challengeSize)
	if err != nil {
		return BeginConnectResult{}, apperrors.InternalError("generate challenge", err)
	}

	expiresAt := s.clock.Now().UTC().Add(challengeTTL)
	s.challenges[inviteID] = pendingChallenge{challenge: challenge, expiresAt: expiresAt}

	metrics.ChallengesIssuedTotal.Inc()
	logging.WithInvite(inviteID).Debug("Challenge issued")

	return BeginConnectResult{
		ServerPublicKey:   crypto.EncodeKey(s.identity.PublicKey),
		ServerFingerprint: s.serverFingerprint,
		Challenge:         base64.StdEncoding.EncodeToString(challenge),
		ExpiresAt:         expiresAt,
	}, nil
}

// FinishConnect verifies a client's challenge signature and, exactly
// once per invite, admits the client: the invite is marked used, the
// member upserted, and a session minted. Preconditions fail with
// distinct codes so a legitimate client can tell a stale challenge from
// a burnt invite.
func (s *State) FinishConnect(ctx context.Context, req FinishConnectRequest) (FinishConnectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.finishConnectLocked(ctx, req)
	if err != nil {
		metrics.HandshakeAttemptsTotal.WithLabelValues(handshakeResult(err)).Inc()
		return FinishConnectResult{}, err
	}
	metrics.HandshakeAttemptsTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *State) finishConnectLocked(ctx context.Context, req FinishConnectRequest) (FinishConnectResult, error) {
	inviteID := strings.TrimSpace(req.InviteID)
	clientKey := strings.TrimSpace(req.ClientPublicKey)
	if inviteID == "" || clientKey == "" {
		return FinishConnectResult{}, apperrors.ValidationError("missing_handshake_fields", "inviteId and clientPublicKey are required")
	}

	invite, err := s.invites.Get(ctx, inviteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return FinishConnectResult{}, apperrors.NotFoundError("invite_not_found", "invite does not exist")
		}
		metrics.DBErrorsTotal.WithLabelValues("get_invite").Inc()
		return FinishConnectResult{}, apperrors.InternalError("look up invite", err)
	}
	if invite.UsedAt != nil {
		return FinishConnectResult{}, apperrors.ForbiddenError("invite_used", "invite has already been used")
	}
	if invite.AllowedClientPublicKey != clientKey {
		return FinishConnectResult{}, apperrors.ForbiddenError("client_not_allowed", "invite is bound to a different client key")
	}

	pending, exists := s.challenges[inviteID]
	now := s.clock.Now().UTC()
	if !exists {
		return FinishConnectResult{}, apperrors.UnauthorizedError("challenge_missing", "no pending challenge for this invite")
	}
	if now.After(pending.expiresAt) {
		delete(s.challenges, inviteID)
		return FinishConnectResult{}, apperrors.UnauthorizedError("challenge_expired", "challenge has expired, begin again")
	}

	suppliedChallenge, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.Challenge))
	if err != nil {
		return FinishConnectResult{}, apperrors.ValidationError("invalid_challenge_encoding", "challenge is not valid base64")
	}
	if subtle.ConstantTimeCompare(suppliedChallenge, pending.challenge) != 1 {
		return FinishConnectResult{}, apperrors.UnauthorizedError("challenge_mismatch", "challenge does not match the pending one")
	}

	pub, err := decodeClientKey(clientKey)
	if err != nil {
		return FinishConnectResult{}, err
	}
	sig, err := decodeSignatureField(req.Signature)
	if err != nil {
		return FinishConnectResult{}, err
	}

	hash := crypto.HandshakePayloadHash(pending.challenge, inviteID, s.serverFingerprint)
	if !ed25519.Verify(pub, hash[:], sig) {
		return FinishConnectResult{}, apperrors.UnauthorizedError("invalid_signature", "handshake signature verification failed")
	}

	// The signature checked out; the conditional update is the only
	// arbiter between concurrent finishes for the same invite.
	redeemed, err := s.invites.MarkUsed(ctx, inviteID, now)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("mark_invite_used").Inc()
		return FinishConnectResult{}, apperrors.InternalError("redeem invite", err)
	}
	if !redeemed {
		return FinishConnectResult{}, apperrors.ConflictError("invite_used", "invite was redeemed concurrently")
	}

	delete(s.challenges, inviteID)

	member := domain.Member{
		PublicKey:        clientKey,
		DisplayName:      normalizeDisplayName(req.DisplayName, clientKey),
		FirstConnectedAt: now,
		LastConnectedAt:  now,
	}
	if err := s.sessions.UpsertMember(ctx, member); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("upsert_member").Inc()
		return FinishConnectResult{}, apperrors.InternalError("record member", err)
	}

	token, err := s.mintSessionLocked(ctx, clientKey, now)
	if err != nil {
		return FinishConnectResult{}, err
	}

	logging.WithClient(clientKey).Info("Handshake completed", "invite_id", inviteID, "display_name", member.DisplayName)

	return FinishConnectResult{
		ServerID:          s.serverID,
		ServerName:        s.profile.ServerName,
		ServerFingerprint: s.serverFingerprint,
		Channels:          s.profile.Channels,
		SessionToken:      token,
	}, nil
}

func (s *State) mintSessionLocked(ctx context.Context, clientKey string, now time.Time) (string, error) {
	raw, err := randomBytes(sessionTokenSize)
	if err != nil {
		return "", apperrors.InternalError("generate session token", err)
	}
	token := hex.EncodeToString(raw)

	session := domain.Session{
		Token:           token,
		ClientPublicKey: clientKey,
		CreatedAt:       now,
		ExpiresAt:       now.Add(sessionTTL),
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("insert_session").Inc()
		return "", apperrors.InternalError("store session", err)
	}

	metrics.SessionsIssuedTotal.Inc()
	return token, nil
}

// handshakeResult maps a finish error to its metrics label.
func handshakeResult(err error) string {
	structured := apperrors.AsStructuredError(err)
	switch structured.Code {
	case "invite_used", "challenge_missing", "challenge_expired", "challenge_mismatch",
		"client_not_allowed", "invalid_signature", "invite_not_found":
		return structured.Code
	default:
		if structured.Type == apperrors.TypeInternal {
			return "error"
		}
		return "invalid_input"
	}
}
