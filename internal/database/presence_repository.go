package database

import (
	"context"
	"fmt"
	"time"

	"github.com/coppice-chat/coppice/internal/domain"
)

// PresenceRepository stores live voice presence. Rows are keyed by
// client public key, so a client occupies at most one voice channel.
type PresenceRepository struct {
	db *DB
}

func NewPresenceRepository(db *DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert writes a participant's presence. joined_at is preserved when
// the client stays in the same channel and reset when it moves.
func (r *PresenceRepository) Upsert(ctx context.Context, participant domain.VoiceParticipant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO voice_presence (
			client_public_key, channel_id, display_name, joined_at, last_seen_at,
			audio_streams, video_streams, camera_enabled, screen_enabled, screen_audio_enabled
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_public_key) DO UPDATE SET
			channel_id = excluded.channel_id,
			display_name = excluded.display_name,
			joined_at = CASE
				WHEN voice_presence.channel_id = excluded.channel_id THEN voice_presence.joined_at
				ELSE excluded.joined_at
			END,
			last_seen_at = excluded.last_seen_at,
			audio_streams = excluded.audio_streams,
			video_streams = excluded.video_streams,
			camera_enabled = excluded.camera_enabled,
			screen_enabled = excluded.screen_enabled,
			screen_audio_enabled = excluded.screen_audio_enabled
	`,
		participant.PublicKey,
		participant.ChannelID,
		participant.DisplayName,
		encodeTime(participant.JoinedAt),
		encodeTime(participant.LastSeenAt),
		participant.AudioStreams,
		participant.VideoStreams,
		boolToInt(participant.CameraEnabled),
		boolToInt(participant.ScreenEnabled),
		boolToInt(participant.ScreenAudioEnabled),
	)
	if err != nil {
		return fmt.Errorf("upsert voice presence: %w", err)
	}
	return nil
}

// DeleteStale evicts participants whose last keepalive is at or before
// cutoff and returns how many were removed.
func (r *PresenceRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM voice_presence WHERE last_seen_at <= ?
	`, encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete stale voice presence: %w", err)
	}
	evicted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale voice presence rows affected: %w", err)
	}
	return evicted, nil
}

// Delete removes a client's presence regardless of channel. Leaving is
// idempotent, so a missing row is not an error.
func (r *PresenceRepository) Delete(ctx context.Context, clientPublicKey string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM voice_presence WHERE client_public_key = ?
	`, clientPublicKey); err != nil {
		return fmt.Errorf("delete voice presence: %w", err)
	}
	return nil
}

// ListByChannel returns a channel's participants ordered by join time.
func (r *PresenceRepository) ListByChannel(ctx context.Context, channelID string) ([]domain.VoiceParticipant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT client_public_key, channel_id, display_name, joined_at, last_seen_at,
			audio_streams, video_streams, camera_enabled, screen_enabled, screen_audio_enabled
		FROM voice_presence
		WHERE channel_id = ?
		ORDER BY joined_at, client_public_key
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query voice presence: %w", err)
	}
	defer rows.Close()

	participants := []domain.VoiceParticipant{}
	for rows.Next() {
		var p domain.VoiceParticipant
		var joinedAt, lastSeenAt string
		var camera, screen, screenAudio int

		if err := rows.Scan(
			&p.PublicKey,
			&p.ChannelID,
			&p.DisplayName,
			&joinedAt,
			&lastSeenAt,
			&p.AudioStreams,
			&p.VideoStreams,
			&camera,
			&screen,
			&screenAudio,
		); err != nil {
			return nil, fmt.Errorf("scan voice presence: %w", err)
		}

		joined, err := parseTime(joinedAt)
		if err != nil {
			return nil, err
		}
		lastSeen, err := parseTime(lastSeenAt)
		if err != nil {
			return nil, err
		}
		p.JoinedAt = joined
		p.LastSeenAt = lastSeen
		p.CameraEnabled = camera != 0
		p.ScreenEnabled = screen != 0
		p.ScreenAudioEnabled = screenAudio != 0

		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice presence: %w", err)
	}
	return participants, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
