package crypto

import "crypto/sha256"

// HandshakePayloadHash is the digest a client signs to finish a
// handshake. Binding the invite id and server fingerprint into the hash
// prevents a captured challenge from being replayed against another
// invite or another server.
func HandshakePayloadHash(challenge []byte, inviteID, serverFingerprint string) [32]byte {
	payload := make([]byte, 0, len(challenge)+len(inviteID)+len(serverFingerprint))
	payload = append(payload, challenge...)
	payload = append(payload, []byte(inviteID)...)
	payload = append(payload, []byte(serverFingerprint)...)
	return sha256.Sum256(payload)
}

// AdminCreateInvitePayloadHash is the digest an admin signs to create an
// invite for a client key.
func AdminCreateInvitePayloadHash(adminPublicKey, clientPublicKey, issuedAt string) [32]byte {
	payload := make([]byte, 0, len(adminPublicKey)+len(clientPublicKey)+len(issuedAt))
	payload = append(payload, []byte(adminPublicKey)...)
	payload = append(payload, []byte(clientPublicKey)...)
	payload = append(payload, []byte(issuedAt)...)
	return sha256.Sum256(payload)
}

// AdminListInvitesPayloadHash is the digest an admin signs to list
// invites.
func AdminListInvitesPayloadHash(adminPublicKey, issuedAt string) [32]byte {
	payload := make([]byte, 0, len(adminPublicKey)+len(issuedAt))
	payload = append(payload, []byte(adminPublicKey)...)
	payload = append(payload, []byte(issuedAt)...)
	return sha256.Sum256(payload)
}
