package domain

import "time"

// InviteStatus is derived from UsedAt: an invite is active until redeemed.
type InviteStatus string

const (
	InviteStatusActive InviteStatus = "active"
	InviteStatusUsed   InviteStatus = "used"
)

// Invite is a single-use capability binding one client public key to
// permission to join. UsedAt is set exactly once by the redeeming
// handshake; invites are never deleted.
type Invite struct {
	ID                     string     `json:"inviteId"`
	AllowedClientPublicKey string     `json:"allowedClientPublicKey"`
	Label                  string     `json:"label"`
	CreatedAt              time.Time  `json:"createdAt"`
	UsedAt                 *time.Time `json:"usedAt,omitempty"`
}

// Status reports whether the invite has been redeemed.
func (i Invite) Status() InviteStatus {
	if i.UsedAt != nil {
		return InviteStatusUsed
	}
	return InviteStatusActive
}

// CreateInviteResult is returned to the admin who created the invite.
// The invite link is a deep link the invited client can open directly.
type CreateInviteResult struct {
	InviteID          string `json:"inviteId"`
	ServerBaseURL     string `json:"serverBaseUrl"`
	ServerFingerprint string `json:"serverFingerprint"`
	InviteLink        string `json:"inviteLink"`
}

// InviteSummary is the admin-facing listing entry.
type InviteSummary struct {
	InviteID               string       `json:"inviteId"`
	AllowedClientPublicKey string       `json:"allowedClientPublicKey"`
	Label                  string       `json:"label"`
	CreatedAt              time.Time    `json:"createdAt"`
	UsedAt                 *time.Time   `json:"usedAt,omitempty"`
	Status                 InviteStatus `json:"status"`
}
