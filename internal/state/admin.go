package state

import (
	"crypto/ed25519"
	"strings"
	"time"

	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

// AdminSignedRequest carries the detached-signature admin credential
// fields shared by every client-signed admin operation.
type AdminSignedRequest struct {
	AdminPublicKey string `json:"adminPublicKey"`
	IssuedAt       string `json:"issuedAt"`
	Signature      string `json:"signature"`
}

// verifyAdminSignature authenticates a client-signed admin request:
// the key must be in the configured admin list, the timestamp within
// the allowed skew, and the signature valid over payloadHash.
func (s *State) verifyAdminSignature(req AdminSignedRequest, payloadHash [32]byte) error {
	adminKey := strings.TrimSpace(req.AdminPublicKey)
	issuedAt := strings.TrimSpace(req.IssuedAt)
	signature := strings.TrimSpace(req.Signature)
	if adminKey == "" || issuedAt == "" || signature == "" {
		return apperrors.ValidationError("missing_admin_fields", "adminPublicKey, issuedAt and signature are required")
	}

	if !s.profile.IsAdminKey(adminKey) {
		return apperrors.ForbiddenError("not_admin", "public key is not in the admin list")
	}

	issued, err := time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return apperrors.ValidationError("invalid_issued_at", "issuedAt must be an RFC3339 timestamp")
	}
	skew := s.clock.Now().Sub(issued)
	if skew < 0 {
		skew = -skew
	}
	if skew > adminMaxSkew {
		return apperrors.UnauthorizedError("stale_timestamp", "issuedAt is outside the allowed clock skew")
	}

	pub, err := decodeAdminKey(adminKey)
	if err != nil {
		return err
	}
	sig, err := decodeSignatureField(signature)
	if err != nil {
		return err
	}

	if !ed25519.Verify(pub, payloadHash[:], sig) {
		return apperrors.UnauthorizedError("invalid_signature", "admin signature verification failed")
	}
	return nil
}
