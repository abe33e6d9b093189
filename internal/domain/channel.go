package domain

// ChannelType distinguishes text channels (message history) from voice
// channels (ephemeral presence).
type ChannelType string

const (
	ChannelTypeText  ChannelType = "text"
	ChannelTypeVoice ChannelType = "voice"
)

// Channel is a statically configured channel. Channels are immutable at
// runtime; messages and voice presence reference them by ID.
type Channel struct {
	ID   string      `json:"id"`
	Type ChannelType `json:"type"`
	Name string      `json:"name"`
}
