package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coppice-chat/coppice/internal/domain"
)

// SessionRepository stores bearer sessions and the member directory they
// resolve against.
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, session domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, client_public_key, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`,
		session.Token,
		session.ClientPublicKey,
		encodeTime(session.CreatedAt),
		encodeTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now and
// returns how many were swept.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at <= ?
	`, encodeTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return swept, nil
}

// Lookup resolves a session token to the member identity behind it.
// Returns ErrNotFound for unknown tokens; the member row always exists
// because the handshake upserts it before minting the session.
func (r *SessionRepository) Lookup(ctx context.Context, token string) (domain.SessionIdentity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.client_public_key, m.display_name
		FROM sessions s
		JOIN members m ON m.public_key = s.client_public_key
		WHERE s.token = ?
	`, token)

	var identity domain.SessionIdentity
	if err := row.Scan(&identity.PublicKey, &identity.DisplayName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SessionIdentity{}, ErrNotFound
		}
		return domain.SessionIdentity{}, fmt.Errorf("query session: %w", err)
	}
	return identity, nil
}

// UpsertMember records a completed handshake in the member directory,
// refreshing the display name and last-connected timestamp on repeat
// connections.
func (r *SessionRepository) UpsertMember(ctx context.Context, member domain.Member) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (public_key, display_name, first_connected_at, last_connected_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (public_key) DO UPDATE SET
			display_name = excluded.display_name,
			last_connected_at = excluded.last_connected_at
	`,
		member.PublicKey,
		member.DisplayName,
		encodeTime(member.FirstConnectedAt),
		encodeTime(member.LastConnectedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}
