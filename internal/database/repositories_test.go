package database

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coppice-chat/coppice/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening replays the migration check without error
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestIdentityRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdentityRepository(db)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, domain.ServerIdentity{PublicKey: pub, PrivateKey: priv, CreatedAt: created}))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, pub, loaded.PublicKey)
	assert.Equal(t, priv, loaded.PrivateKey)
	assert.Equal(t, created, loaded.CreatedAt)

	// Identity is write-once
	err = repo.Save(ctx, domain.ServerIdentity{PublicKey: pub, PrivateKey: priv, CreatedAt: created})
	assert.Error(t, err)
}

func TestInviteMarkUsedExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	repo := NewInviteRepository(db)
	ctx := context.Background()

	invite := domain.Invite{
		ID:                     "inv-1",
		AllowedClientPublicKey: "client-key",
		Label:                  "alice",
		CreatedAt:              time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, invite))

	usedAt := invite.CreatedAt.Add(time.Minute)

	redeemed, err := repo.MarkUsed(ctx, "inv-1", usedAt)
	require.NoError(t, err)
	assert.True(t, redeemed)

	redeemed, err = repo.MarkUsed(ctx, "inv-1", usedAt.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, redeemed)

	loaded, err := repo.Get(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.UsedAt)
	assert.Equal(t, usedAt, *loaded.UsedAt)
	assert.Equal(t, domain.InviteStatusUsed, loaded.Status())
}

func TestInviteGetNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewInviteRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewInviteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, domain.Invite{ID: "old", AllowedClientPublicKey: "k", CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, domain.Invite{ID: "new", AllowedClientPublicKey: "k", CreatedAt: base.Add(time.Hour)}))

	invites, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, invites, 2)
	assert.Equal(t, "new", invites[0].ID)
	assert.Equal(t, "old", invites[1].ID)
}

func TestSessionLookupJoinsMember(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertMember(ctx, domain.Member{
		PublicKey:        "client-key",
		DisplayName:      "alice",
		FirstConnectedAt: now,
		LastConnectedAt:  now,
	}))
	require.NoError(t, repo.Insert(ctx, domain.Session{
		Token:           "tok-1",
		ClientPublicKey: "client-key",
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
	}))

	identity, err := repo.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "client-key", identity.PublicKey)
	assert.Equal(t, "alice", identity.DisplayName)

	_, err = repo.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDeleteExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertMember(ctx, domain.Member{PublicKey: "k", DisplayName: "a", FirstConnectedAt: now, LastConnectedAt: now}))
	require.NoError(t, repo.Insert(ctx, domain.Session{Token: "expired", ClientPublicKey: "k", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Insert(ctx, domain.Session{Token: "live", ClientPublicKey: "k", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	swept, err := repo.DeleteExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	_, err = repo.Lookup(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Lookup(ctx, "live")
	assert.NoError(t, err)
}

func TestMemberUpsertRefreshesNameAndLastConnected(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	require.NoError(t, repo.UpsertMember(ctx, domain.Member{PublicKey: "k", DisplayName: "old name", FirstConnectedAt: first, LastConnectedAt: first}))
	require.NoError(t, repo.UpsertMember(ctx, domain.Member{PublicKey: "k", DisplayName: "new name", FirstConnectedAt: later, LastConnectedAt: later}))

	require.NoError(t, repo.Insert(ctx, domain.Session{Token: "t", ClientPublicKey: "k", CreatedAt: later, ExpiresAt: later.Add(time.Hour)}))

	identity, err := repo.Lookup(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "new name", identity.DisplayName)

	// first_connected_at must survive the upsert
	var firstConnected string
	require.NoError(t, db.QueryRow(`SELECT first_connected_at FROM members WHERE public_key = 'k'`).Scan(&firstConnected))
	assert.Equal(t, encodeTime(first), firstConnected)
}

func TestMessageListNewestFirstAndUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	author := domain.MessageAuthor{PublicKey: "k", DisplayName: "alice"}
	for i, id := range []string{"m1", "m2", "m3"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(ctx, domain.ChannelMessage{
			ID: id, ChannelID: "general", Author: author,
			ContentMarkdown: "hello " + id, CreatedAt: ts, UpdatedAt: ts,
		}))
	}

	messages, err := repo.ListNewestFirst(ctx, "general", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m3", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)

	updated := base.Add(time.Hour)
	require.NoError(t, repo.UpdateContent(ctx, "m1", "edited", updated))

	m1, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "edited", m1.ContentMarkdown)
	assert.Equal(t, updated, m1.UpdatedAt)
	assert.Equal(t, base, m1.CreatedAt)

	err = repo.UpdateContent(ctx, "missing", "x", updated)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPresencePreservesJoinedAtWithinChannel(t *testing.T) {
	db := openTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()

	joined := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	participant := domain.VoiceParticipant{
		PublicKey: "k", DisplayName: "alice", ChannelID: "voice-main",
		JoinedAt: joined, LastSeenAt: joined, AudioStreams: 1,
	}
	require.NoError(t, repo.Upsert(ctx, participant))

	// Keepalive in the same channel keeps the original join time
	participant.JoinedAt = joined.Add(time.Minute)
	participant.LastSeenAt = joined.Add(time.Minute)
	participant.CameraEnabled = true
	require.NoError(t, repo.Upsert(ctx, participant))

	roster, err := repo.ListByChannel(ctx, "voice-main")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, joined, roster[0].JoinedAt)
	assert.Equal(t, joined.Add(time.Minute), roster[0].LastSeenAt)
	assert.True(t, roster[0].CameraEnabled)

	// Moving channels resets the join time
	participant.ChannelID = "voice-afk"
	participant.JoinedAt = joined.Add(2 * time.Minute)
	participant.LastSeenAt = joined.Add(2 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, participant))

	old, err := repo.ListByChannel(ctx, "voice-main")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := repo.ListByChannel(ctx, "voice-afk")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, joined.Add(2*time.Minute), moved[0].JoinedAt)
}

func TestPresenceDeleteStale(t *testing.T) {
	db := openTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, domain.VoiceParticipant{
		PublicKey: "stale", DisplayName: "s", ChannelID: "voice-main",
		JoinedAt: now, LastSeenAt: now,
	}))
	require.NoError(t, repo.Upsert(ctx, domain.VoiceParticipant{
		PublicKey: "fresh", DisplayName: "f", ChannelID: "voice-main",
		JoinedAt: now, LastSeenAt: now.Add(time.Minute),
	}))

	evicted, err := repo.DeleteStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	roster, err := repo.ListByChannel(ctx, "voice-main")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "fresh", roster[0].PublicKey)
}

func TestPresenceDeleteIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewPresenceRepository(db)
	ctx := context.Background()

	assert.NoError(t, repo.Delete(ctx, "nobody"))
}
