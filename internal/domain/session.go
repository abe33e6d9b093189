package domain

import "time"

// Session is a bearer credential minted by a successful handshake finish.
// A client may hold multiple sessions at once.
type Session struct {
	Token           string
	ClientPublicKey string
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// SessionIdentity is the resolved identity behind a session token,
// joined against the member directory for the display name.
type SessionIdentity struct {
	PublicKey   string `json:"publicKey"`
	DisplayName string `json:"displayName"`
}

// Member is the durable record of a client that has completed a handshake
// at least once. The display name is the latest claimed value.
type Member struct {
	PublicKey        string    `json:"publicKey"`
	DisplayName      string    `json:"displayName"`
	FirstConnectedAt time.Time `json:"firstConnectedAt"`
	LastConnectedAt  time.Time `json:"lastConnectedAt"`
}
