package domain

import "time"

// MaxVoiceStreams caps the per-participant audio/video stream counts a
// client may report.
const MaxVoiceStreams = 16

// VoiceParticipant is one client's presence in a voice channel. A client
// can be present in at most one voice channel at a time.
type VoiceParticipant struct {
	PublicKey          string    `json:"publicKey"`
	DisplayName        string    `json:"displayName"`
	ChannelID          string    `json:"channelId"`
	JoinedAt           time.Time `json:"joinedAt"`
	LastSeenAt         time.Time `json:"lastSeenAt"`
	AudioStreams       int       `json:"audioStreams"`
	VideoStreams       int       `json:"videoStreams"`
	CameraEnabled      bool      `json:"cameraEnabled"`
	ScreenEnabled      bool      `json:"screenEnabled"`
	ScreenAudioEnabled bool      `json:"screenAudioEnabled"`
}

// VoicePresenceUpdate carries the stream counts and capability flags a
// client reports on each keepalive.
type VoicePresenceUpdate struct {
	AudioStreams       int  `json:"audioStreams"`
	VideoStreams       int  `json:"videoStreams"`
	CameraEnabled      bool `json:"cameraEnabled"`
	ScreenEnabled      bool `json:"screenEnabled"`
	ScreenAudioEnabled bool `json:"screenAudioEnabled"`
}

// Clamp bounds the reported stream counts into [0, MaxVoiceStreams].
func (u VoicePresenceUpdate) Clamp() VoicePresenceUpdate {
	clamp := func(n int) int {
		if n < 0 {
			return 0
		}
		if n > MaxVoiceStreams {
			return MaxVoiceStreams
		}
		return n
	}
	u.AudioStreams = clamp(u.AudioStreams)
	u.VideoStreams = clamp(u.VideoStreams)
	return u
}

// VoiceChannelState is the live roster of a voice channel.
type VoiceChannelState struct {
	ChannelID    string             `json:"channelId"`
	Participants []VoiceParticipant `json:"participants"`
}

// VoiceJoinContext is handed back from a voice join so the transport can
// request a signed media-router token for the room.
type VoiceJoinContext struct {
	Identity  SessionIdentity
	ChannelID string
	RoomName  string
}
