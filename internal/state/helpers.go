package state

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/coppice-chat/coppice/internal/crypto"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

func decodeClientKey(value string) (ed25519.PublicKey, error) {
	pub, err := crypto.DecodePublicKey(value)
	if err != nil {
		return nil, apperrors.ValidationError("invalid_public_key", "clientPublicKey is not a valid Ed25519 public key")
	}
	return pub, nil
}

func decodeAdminKey(value string) (ed25519.PublicKey, error) {
	pub, err := crypto.DecodePublicKey(value)
	if err != nil {
		return nil, apperrors.ValidationError("invalid_public_key", "adminPublicKey is not a valid Ed25519 public key")
	}
	return pub, nil
}

func decodeSignatureField(value string) ([]byte, error) {
	sig, err := crypto.DecodeSignature(value)
	if err != nil {
		return nil, apperrors.ValidationError("invalid_signature_encoding", "signature is not a valid Ed25519 signature")
	}
	return sig, nil
}

// normalizeDisplayName trims a claimed display name, falling back to a
// key-derived placeholder when nothing usable was claimed.
func normalizeDisplayName(claimed, clientPublicKey string) string {
	name := strings.TrimSpace(claimed)
	if name != "" {
		return name
	}
	key := clientPublicKey
	if len(key) > 8 {
		key = key[:8]
	}
	return fmt.Sprintf("User %s", key)
}
