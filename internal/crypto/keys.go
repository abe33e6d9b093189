// Package crypto holds the key codecs, fingerprinting, and signature
// payload construction shared by the handshake and admin authentication.
package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

// EncodeKey renders key material as standard base64, the wire encoding
// used for all keys and signatures.
func EncodeKey(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodePublicKey parses a base64-encoded Ed25519 public key.
func DecodePublicKey(value string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("expected %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// DecodePrivateKey parses a base64-encoded Ed25519 private key.
func DecodePrivateKey(value string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// DecodeSignature parses a base64-encoded Ed25519 signature.
func DecodeSignature(value string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, fmt.Errorf("expected %d bytes, got %d", ed25519.SignatureSize, len(raw))
	}
	return raw, nil
}
