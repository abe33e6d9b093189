package domain

import (
	"crypto/ed25519"
	"time"
)

// ServerIdentity is the server's long-lived Ed25519 keypair, created once
// at first boot and immutable thereafter.
type ServerIdentity struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	CreatedAt  time.Time
}

// ServerInfo is the public identity card of the server.
type ServerInfo struct {
	ServerID          string   `json:"serverId"`
	Name              string   `json:"name"`
	ServerFingerprint string   `json:"serverFingerprint"`
	ServerPublicKey   string   `json:"serverPublicKey"`
	MediaRouterURL    string   `json:"mediaRouterUrl"`
	AdminPublicKeys   []string `json:"adminPublicKeys"`
}
