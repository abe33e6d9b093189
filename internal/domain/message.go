package domain

import "time"

// MessageAuthor identifies who wrote a message. The display name is
// denormalized at write time so history survives later renames.
type MessageAuthor struct {
	PublicKey   string `json:"publicKey"`
	DisplayName string `json:"displayName"`
}

// ChannelMessage is one entry in a text channel's ordered history.
// UpdatedAt >= CreatedAt always.
type ChannelMessage struct {
	ID              string        `json:"id"`
	ChannelID       string        `json:"channelId"`
	Author          MessageAuthor `json:"author"`
	ContentMarkdown string        `json:"contentMarkdown"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// EventType labels a channel event for subscribers.
type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageUpdated EventType = "message.updated"
)

// ChannelEvent is the payload fanned out to live channel subscribers.
type ChannelEvent struct {
	Type    EventType       `json:"type"`
	Message *ChannelMessage `json:"message,omitempty"`
}
