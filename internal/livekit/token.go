// Package livekit issues signed join tokens for the media router. The
// coordinator only tracks presence; actual audio/video flows through a
// LiveKit-compatible SFU the client connects to with these tokens.
package livekit

import (
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/metrics"
)

const tokenValidity = 6 * time.Hour

// TokenIssuer signs room join tokens with the media router API keypair.
// The zero-credential issuer is valid but disabled.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
}

func NewTokenIssuer(apiKey, apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret}
}

// Enabled reports whether media router credentials are configured.
func (t *TokenIssuer) Enabled() bool {
	return t.apiKey != "" && t.apiSecret != ""
}

// IssueVoiceToken mints a signed JWT granting the identity permission
// to join and publish in the given room.
func (t *TokenIssuer) IssueVoiceToken(roomName, identity, displayName string) (string, error) {
	if !t.Enabled() {
		metrics.VoiceTokensIssuedTotal.WithLabelValues("unavailable").Inc()
		return "", apperrors.UnavailableError("voice_unavailable", "media router credentials are not configured")
	}

	canPublish := true
	canSubscribe := true
	canPublishData := true

	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           roomName,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}

	token := auth.NewAccessToken(t.apiKey, t.apiSecret).
		AddGrant(grant).
		SetIdentity(identity).
		SetName(displayName).
		SetValidFor(tokenValidity)

	jwt, err := token.ToJWT()
	if err != nil {
		metrics.VoiceTokensIssuedTotal.WithLabelValues("error").Inc()
		return "", apperrors.InternalError("sign voice token", fmt.Errorf("sign voice token: %w", err))
	}

	metrics.VoiceTokensIssuedTotal.WithLabelValues("success").Inc()
	return jwt, nil
}
