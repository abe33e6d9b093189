package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coppice-chat/coppice/internal/config"
	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	"github.com/coppice-chat/coppice/internal/livekit"
	"github.com/coppice-chat/coppice/internal/state"
)

const testAdminToken = "test-admin-token"

type testServer struct {
	srv        *Server
	profile    *config.ServerProfile
	clock      clockwork.FakeClock
	clientPub  string
	clientPriv ed25519.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := &config.Config{
		Addr:            ":0",
		ServerBaseURL:   "http://localhost:8080",
		MediaRouterURL:  "http://localhost:7880",
		AdminToken:      testAdminToken,
		BeginRatePerSec: 1000,
		BeginRateBurst:  1000,
	}
	profile := &config.ServerProfile{
		ServerName: "Test Server",
		Channels: []domain.Channel{
			{ID: "general", Type: domain.ChannelTypeText, Name: "general"},
			{ID: "voice-main", Type: domain.ChannelTypeVoice, Name: "Voice"},
		},
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	st, err := state.New(context.Background(), cfg, profile, db, clock)
	require.NoError(t, err)

	tokens := livekit.NewTokenIssuer("", "")
	srv := NewServer(cfg, st, db, tokens, clock)

	return &testServer{
		srv:        srv,
		profile:    profile,
		clock:      clock,
		clientPub:  crypto.EncodeKey(clientPub),
		clientPriv: clientPriv,
	}
}

func (ts *testServer) request(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	ts.srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

func marshal(t *testing.T, value any) string {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	return string(raw)
}

// connectClient drives the full invite + handshake flow over HTTP and
// returns the session token.
func (ts *testServer) connectClient(t *testing.T) string {
	t.Helper()

	rec := ts.request(t, http.MethodPost, "/api/admin/invites",
		marshal(t, map[string]string{"clientPublicKey": ts.clientPub, "label": "test"}), testAdminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var invite domain.CreateInviteResult
	decodeJSON(t, rec, &invite)

	rec = ts.request(t, http.MethodPost, "/api/connect/begin",
		marshal(t, map[string]string{"inviteId": invite.InviteID}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var begin state.BeginConnectResult
	decodeJSON(t, rec, &begin)

	challenge, err := base64.StdEncoding.DecodeString(begin.Challenge)
	require.NoError(t, err)
	hash := crypto.HandshakePayloadHash(challenge, invite.InviteID, begin.ServerFingerprint)
	signature := crypto.EncodeKey(ed25519.Sign(ts.clientPriv, hash[:]))

	rec = ts.request(t, http.MethodPost, "/api/connect/finish", marshal(t, map[string]string{
		"inviteId":        invite.InviteID,
		"clientPublicKey": ts.clientPub,
		"challenge":       begin.Challenge,
		"signature":       signature,
		"displayName":     "alice",
	}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var finish state.FinishConnectResult
	decodeJSON(t, rec, &finish)
	require.NotEmpty(t, finish.SessionToken)
	return finish.SessionToken
}

func TestServerInfoEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/server-info", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info domain.ServerInfo
	decodeJSON(t, rec, &info)
	assert.Equal(t, "Test Server", info.Name)
	assert.True(t, strings.HasPrefix(info.ServerID, "srv-"))
	assert.NotEmpty(t, info.ServerFingerprint)
	assert.NotEmpty(t, info.ServerPublicKey)
}

func TestChannelsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/channels", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Channels []domain.Channel `json:"channels"`
	}
	decodeJSON(t, rec, &body)
	assert.Len(t, body.Channels, 2)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFullHandshakeOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)
	assert.NotEmpty(t, token)
}

func TestBeginConnectUnknownInviteReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/connect/begin",
		marshal(t, map[string]string{"inviteId": "missing"}), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "invite_not_found", body["error"])
}

func TestAdminBearerRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/admin/invites",
		marshal(t, map[string]string{"clientPublicKey": ts.clientPub}), "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/admin/invites", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminBearerDisabledWithoutToken(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.config.AdminToken = ""

	rec := ts.request(t, http.MethodGet, "/api/admin/invites", "", "anything")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "admin_disabled", body["error"])
}

func TestListInvitesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.connectClient(t)

	rec := ts.request(t, http.MethodGet, "/api/admin/invites", "", testAdminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Invites []domain.InviteSummary `json:"invites"`
	}
	decodeJSON(t, rec, &body)
	require.Len(t, body.Invites, 1)
	assert.Equal(t, domain.InviteStatusUsed, body.Invites[0].Status)
	assert.NotNil(t, body.Invites[0].UsedAt)
}

func TestMessageLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)

	rec := ts.request(t, http.MethodPost, "/api/channels/general/messages",
		marshal(t, map[string]string{"content": "hello world"}), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.ChannelMessage
	decodeJSON(t, rec, &created)
	assert.Equal(t, "hello world", created.ContentMarkdown)
	assert.Equal(t, "alice", created.Author.DisplayName)

	ts.clock.Advance(time.Second)

	rec = ts.request(t, http.MethodPatch, "/api/channels/general/messages/"+created.ID,
		marshal(t, map[string]string{"content": "edited"}), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodGet, "/api/channels/general/messages", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Messages []domain.ChannelMessage `json:"messages"`
	}
	decodeJSON(t, rec, &list)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "edited", list.Messages[0].ContentMarkdown)
	assert.True(t, list.Messages[0].UpdatedAt.After(list.Messages[0].CreatedAt))
}

func TestMessagesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/channels/general/messages", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "invalid_session_token", body["error"])
}

func TestListMessagesRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)

	rec := ts.request(t, http.MethodGet, "/api/channels/general/messages?limit=abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoiceJoinUnavailableWithoutMediaCredentials(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)

	rec := ts.request(t, http.MethodPost, "/api/voice/voice-main/join", "", token)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "voice_unavailable", body["error"])

	// Presence was still recorded by the join attempt
	rec = ts.request(t, http.MethodGet, "/api/voice/voice-main/state", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var voiceState domain.VoiceChannelState
	decodeJSON(t, rec, &voiceState)
	assert.Len(t, voiceState.Participants, 1)
}

func TestVoicePresenceAndLeaveOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)

	rec := ts.request(t, http.MethodPost, "/api/voice/voice-main/presence",
		marshal(t, domain.VoicePresenceUpdate{AudioStreams: 1, CameraEnabled: true}), token)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ts.request(t, http.MethodGet, "/api/voice/voice-main/state", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var voiceState domain.VoiceChannelState
	decodeJSON(t, rec, &voiceState)
	require.Len(t, voiceState.Participants, 1)
	assert.True(t, voiceState.Participants[0].CameraEnabled)

	rec = ts.request(t, http.MethodPost, "/api/voice/leave", "", token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/voice/voice-main/state", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &voiceState)
	assert.Empty(t, voiceState.Participants)
}

func TestSessionTokenViaQueryParam(t *testing.T) {
	ts := newTestServer(t)
	token := ts.connectClient(t)

	rec := ts.request(t, http.MethodGet, "/api/channels/general/messages?token="+token, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientSignedAdminPathOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	adminPub, adminPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	encodedAdmin := crypto.EncodeKey(adminPub)

	// Register the key as admin in the live profile the state reads
	ts.profile.AdminPublicKeys = append(ts.profile.AdminPublicKeys, encodedAdmin)

	issuedAt := ts.clock.Now().UTC().Format(time.RFC3339)
	hash := crypto.AdminCreateInvitePayloadHash(encodedAdmin, ts.clientPub, issuedAt)
	signature := crypto.EncodeKey(ed25519.Sign(adminPriv, hash[:]))

	rec := ts.request(t, http.MethodPost, "/api/admin/invites/client-signed", marshal(t, map[string]string{
		"adminPublicKey":  encodedAdmin,
		"issuedAt":        issuedAt,
		"signature":       signature,
		"clientPublicKey": ts.clientPub,
		"label":           "signed",
	}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var invite domain.CreateInviteResult
	decodeJSON(t, rec, &invite)
	assert.Contains(t, invite.InviteLink, "coppice://connect?")

	// And the signed list path sees it
	listHash := crypto.AdminListInvitesPayloadHash(encodedAdmin, issuedAt)
	listSig := crypto.EncodeKey(ed25519.Sign(adminPriv, listHash[:]))

	rec = ts.request(t, http.MethodPost, "/api/admin/invites/list/client-signed", marshal(t, map[string]string{
		"adminPublicKey": encodedAdmin,
		"issuedAt":       issuedAt,
		"signature":      listSig,
	}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Invites []domain.InviteSummary `json:"invites"`
	}
	decodeJSON(t, rec, &body)
	assert.Len(t, body.Invites, 1)
}
