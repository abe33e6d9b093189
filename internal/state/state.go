// Package state implements the coordinator that owns all server state:
// the persistent store, the pending handshake challenges, and the live
// channel subscriptions. One coarse mutex serializes every operation;
// at this scale correctness beats lock granularity.
package state

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coppice-chat/coppice/internal/broadcast"
	"github.com/coppice-chat/coppice/internal/config"
	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	"github.com/coppice-chat/coppice/internal/logging"
)

const (
	challengeTTL  = 2 * time.Minute
	adminMaxSkew  = 2 * time.Minute
	sessionTTL    = 30 * 24 * time.Hour
	voiceTTL      = 30 * time.Second
	voiceLagGrace = 5 * time.Second

	challengeSize    = 32
	sessionTokenSize = 32
)

// pendingChallenge is an in-flight handshake, keyed by invite id. A
// repeated begin overwrites the previous challenge.
type pendingChallenge struct {
	challenge []byte
	expiresAt time.Time
}

// State is the single owner of all mutable server state. All exported
// methods take the mutex; nothing else may touch the store or the maps.
type State struct {
	mu sync.Mutex

	cfg     *config.Config
	profile *config.ServerProfile
	clock   clockwork.Clock

	identity          domain.ServerIdentity
	serverID          string
	serverFingerprint string

	invites  *database.InviteRepository
	sessions *database.SessionRepository
	messages *database.MessageRepository
	presence *database.PresenceRepository

	challenges map[string]pendingChallenge
	hub        *broadcast.Hub
}

// New builds the coordinator, loading the server identity from the
// store or generating one on first boot.
func New(ctx context.Context, cfg *config.Config, profile *config.ServerProfile, db *database.DB, clock clockwork.Clock) (*State, error) {
	identityRepo := database.NewIdentityRepository(db)

	identity, err := identityRepo.Load(ctx)
	switch {
	case err == nil:
		if !identity.PublicKey.Equal(identity.PrivateKey.Public().(ed25519.PublicKey)) {
			return nil, fmt.Errorf("stored server keypair does not match")
		}
	case errors.Is(err, database.ErrNotFound):
		pub, priv, genErr := ed25519.GenerateKey(rand.Reader)
		if genErr != nil {
			return nil, fmt.Errorf("generate server keypair: %w", genErr)
		}
		identity = domain.ServerIdentity{PublicKey: pub, PrivateKey: priv, CreatedAt: clock.Now().UTC()}
		if saveErr := identityRepo.Save(ctx, identity); saveErr != nil {
			return nil, saveErr
		}
		logging.Logger.Info("Generated server identity", "server_id", crypto.ServerID(pub))
	default:
		return nil, err
	}

	return &State{
		cfg:               cfg,
		profile:           profile,
		clock:             clock,
		identity:          identity,
		serverID:          crypto.ServerID(identity.PublicKey),
		serverFingerprint: crypto.Fingerprint(identity.PublicKey),
		invites:           database.NewInviteRepository(db),
		sessions:          database.NewSessionRepository(db),
		messages:          database.NewMessageRepository(db),
		presence:          database.NewPresenceRepository(db),
		challenges:        make(map[string]pendingChallenge),
		hub:               broadcast.NewHub(broadcast.DefaultEventBuffer),
	}, nil
}

// ServerInfo returns the server's public identity card.
func (s *State) ServerInfo() domain.ServerInfo {
	return domain.ServerInfo{
		ServerID:          s.serverID,
		Name:              s.profile.ServerName,
		ServerFingerprint: s.serverFingerprint,
		ServerPublicKey:   crypto.EncodeKey(s.identity.PublicKey),
		MediaRouterURL:    s.cfg.MediaRouterURL,
		AdminPublicKeys:   s.profile.AdminPublicKeys,
	}
}

// Channels returns the configured channel list.
func (s *State) Channels() []domain.Channel {
	return s.profile.Channels
}

// Shutdown drops every live subscription so stream handlers unwind.
func (s *State) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.CloseAll()
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}
