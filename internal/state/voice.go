package state

import (
	"context"
	"fmt"

	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/metrics"
)

// BeginVoiceJoin records a client entering a voice channel and returns
// the media room context. Joining a second channel implicitly moves the
// client; joinedAt only resets when the channel changes.
func (s *State) BeginVoiceJoin(ctx context.Context, token, channelID string) (domain.VoiceJoinContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authenticateSessionLocked(ctx, token)
	if err != nil {
		return domain.VoiceJoinContext{}, err
	}
	if err := s.requireVoiceChannelLocked(channelID); err != nil {
		return domain.VoiceJoinContext{}, err
	}
	if err := s.sweepVoicePresenceLocked(ctx); err != nil {
		return domain.VoiceJoinContext{}, err
	}

	now := s.clock.Now().UTC()
	participant := domain.VoiceParticipant{
		PublicKey:   identity.PublicKey,
		DisplayName: identity.DisplayName,
		ChannelID:   channelID,
		JoinedAt:    now,
		LastSeenAt:  now,
		// A joiner publishes audio until the first presence update
		// says otherwise.
		AudioStreams: 1,
	}
	if err := s.presence.Upsert(ctx, participant); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("upsert_presence").Inc()
		return domain.VoiceJoinContext{}, apperrors.InternalError("record voice join", err)
	}

	metrics.VoiceJoinsTotal.Inc()
	logging.WithChannel(channelID).Info("Voice join", "client_public_key", identity.PublicKey)

	return domain.VoiceJoinContext{
		Identity:  identity,
		ChannelID: channelID,
		RoomName:  fmt.Sprintf("%s:%s", s.serverID, channelID),
	}, nil
}

// TouchVoicePresence refreshes a participant's liveness and stream
// counts. It doubles as the join path for reconnecting clients, so it
// upserts rather than requiring an existing row.
func (s *State) TouchVoicePresence(ctx context.Context, token, channelID string, update domain.VoicePresenceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authenticateSessionLocked(ctx, token)
	if err != nil {
		return err
	}
	if err := s.requireVoiceChannelLocked(channelID); err != nil {
		return err
	}
	if err := s.sweepVoicePresenceLocked(ctx); err != nil {
		return err
	}

	update = update.Clamp()
	now := s.clock.Now().UTC()
	participant := domain.VoiceParticipant{
		PublicKey:          identity.PublicKey,
		DisplayName:        identity.DisplayName,
		ChannelID:          channelID,
		JoinedAt:           now,
		LastSeenAt:         now,
		AudioStreams:       update.AudioStreams,
		VideoStreams:       update.VideoStreams,
		CameraEnabled:      update.CameraEnabled,
		ScreenEnabled:      update.ScreenEnabled,
		ScreenAudioEnabled: update.ScreenAudioEnabled,
	}
	if err := s.presence.Upsert(ctx, participant); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("upsert_presence").Inc()
		return apperrors.InternalError("refresh voice presence", err)
	}
	return nil
}

// LeaveVoice removes the client's presence wherever it is. Leaving when
// not present is a no-op.
func (s *State) LeaveVoice(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authenticateSessionLocked(ctx, token)
	if err != nil {
		return err
	}
	if err := s.presence.Delete(ctx, identity.PublicKey); err != nil {
		metrics.DBErrorsTotal.WithLabelValues("delete_presence").Inc()
		return apperrors.InternalError("leave voice", err)
	}
	return nil
}

// GetVoiceChannelState returns the live roster of a voice channel after
// evicting stale rows.
func (s *State) GetVoiceChannelState(ctx context.Context, token, channelID string) (domain.VoiceChannelState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authenticateSessionLocked(ctx, token); err != nil {
		return domain.VoiceChannelState{}, err
	}
	if err := s.requireVoiceChannelLocked(channelID); err != nil {
		return domain.VoiceChannelState{}, err
	}
	if err := s.sweepVoicePresenceLocked(ctx); err != nil {
		return domain.VoiceChannelState{}, err
	}

	participants, err := s.presence.ListByChannel(ctx, channelID)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_presence").Inc()
		return domain.VoiceChannelState{}, apperrors.InternalError("list voice presence", err)
	}
	return domain.VoiceChannelState{ChannelID: channelID, Participants: participants}, nil
}

// sweepVoicePresenceLocked evicts participants whose keepalive is older
// than the TTL plus a grace allowance for client-side timer lag.
func (s *State) sweepVoicePresenceLocked(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-(voiceTTL + voiceLagGrace))
	evicted, err := s.presence.DeleteStale(ctx, cutoff)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("sweep_presence").Inc()
		return apperrors.InternalError("sweep voice presence", err)
	}
	if evicted > 0 {
		metrics.VoicePresenceEvictionsTotal.Add(float64(evicted))
		logging.Logger.Debug("Evicted stale voice presence", "count", evicted)
	}
	return nil
}

func (s *State) requireVoiceChannelLocked(channelID string) error {
	channel, exists := s.profile.FindChannel(channelID)
	if !exists {
		return apperrors.NotFoundError("channel_not_found", "channel does not exist")
	}
	if channel.Type != domain.ChannelTypeVoice {
		return apperrors.ValidationError("not_voice_channel", "channel is not a voice channel")
	}
	return nil
}
