package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintSymbols is the fixed 32-entry table the fingerprint maps
// into. Changing it invalidates every signature bound to a fingerprint,
// so it is frozen.
var fingerprintSymbols = []string{
	"😀", "😎", "🚀", "🌈", "🔥", "🧩", "🎯", "🎧",
	"🛰️", "🛡️", "🌊", "🍀", "🧠", "🌙", "⚡", "🧭",
	"🧱", "🪐", "🐉", "🎲", "🎹", "📡", "🧪", "🐙",
	"🦊", "🦉", "🐳", "🍪", "🏔️", "🌵", "🍄", "🍓",
}

// Fingerprint derives the short human-verifiable digest of a public key:
// the first 4 bytes of SHA-256(key), each mapped modulo 32 into the
// symbol table. A usability aid for out-of-band spot checks, not a
// security boundary on its own.
func Fingerprint(publicKey []byte) string {
	hash := sha256.Sum256(publicKey)
	parts := make([]string, 4)
	for i := 0; i < 4; i++ {
		parts[i] = fingerprintSymbols[int(hash[i])%len(fingerprintSymbols)]
	}
	return strings.Join(parts, "")
}

// ServerID derives the stable hash-based server identifier from the
// server public key.
func ServerID(publicKey []byte) string {
	hash := sha256.Sum256(publicKey)
	return "srv-" + hex.EncodeToString(hash[:8])
}
