package state

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/coppice-chat/coppice/internal/config"
	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
)

var testStart = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type testFixture struct {
	state      *State
	clock      clockwork.FakeClock
	adminPub   string
	adminPriv  ed25519.PrivateKey
	clientPub  string
	clientPriv ed25519.PrivateKey
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	adminPub, adminPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := &config.Config{
		ServerBaseURL:  "http://localhost:8080",
		MediaRouterURL: "http://localhost:7880",
	}
	profile := &config.ServerProfile{
		ServerName: "Test Server",
		Channels: []domain.Channel{
			{ID: "general", Type: domain.ChannelTypeText, Name: "general"},
			{ID: "voice-main", Type: domain.ChannelTypeVoice, Name: "Voice"},
		},
		AdminPublicKeys: []string{crypto.EncodeKey(adminPub)},
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(testStart)

	st, err := New(context.Background(), cfg, profile, db, clock)
	require.NoError(t, err)

	return &testFixture{
		state:      st,
		clock:      clock,
		adminPub:   crypto.EncodeKey(adminPub),
		adminPriv:  adminPriv,
		clientPub:  crypto.EncodeKey(clientPub),
		clientPriv: clientPriv,
	}
}

// withSecondClient returns a view of the same server fixture acting as
// a different client with its own keypair.
func (f *testFixture) withSecondClient(t *testing.T) *testFixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	clone := *f
	clone.clientPub = crypto.EncodeKey(pub)
	clone.clientPriv = priv
	return &clone
}

// createInvite makes an invite for the fixture's client key through the
// bearer path.
func (f *testFixture) createInvite(t *testing.T) string {
	t.Helper()
	result, err := f.state.CreateInvite(context.Background(), CreateInviteRequest{
		ClientPublicKey: f.clientPub,
		Label:           "test",
	})
	require.NoError(t, err)
	return result.InviteID
}

// signChallenge produces the client's handshake signature for a begin
// result.
func (f *testFixture) signChallenge(t *testing.T, begin BeginConnectResult, inviteID string, priv ed25519.PrivateKey) string {
	t.Helper()
	challenge := decodeB64(t, begin.Challenge)
	hash := crypto.HandshakePayloadHash(challenge, inviteID, begin.ServerFingerprint)
	return crypto.EncodeKey(ed25519.Sign(priv, hash[:]))
}

// connect runs the full handshake for the fixture's client and returns
// the session token.
func (f *testFixture) connect(t *testing.T) string {
	t.Helper()
	inviteID := f.createInvite(t)

	begin, err := f.state.BeginConnect(context.Background(), inviteID)
	require.NoError(t, err)

	finish, err := f.state.FinishConnect(context.Background(), FinishConnectRequest{
		InviteID:        inviteID,
		ClientPublicKey: f.clientPub,
		Challenge:       begin.Challenge,
		Signature:       f.signChallenge(t, begin, inviteID, f.clientPriv),
		DisplayName:     "alice",
	})
	require.NoError(t, err)
	return finish.SessionToken
}

func requireErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	structured := apperrors.AsStructuredError(err)
	require.Equal(t, code, structured.Code, "unexpected error code: %v", err)
}

func decodeB64(t *testing.T, value string) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)
	return raw
}
