package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coppice-chat/coppice/internal/domain"
)

// InviteRepository stores single-use invites. Redeemed invites keep
// their row for the admin listing; redemption only sets used_at.
type InviteRepository struct {
	db *DB
}

func NewInviteRepository(db *DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) Create(ctx context.Context, invite domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, allowed_client_public_key, label, created_at, used_at)
		VALUES (?, ?, ?, ?, NULL)
	`,
		invite.ID,
		invite.AllowedClientPublicKey,
		invite.Label,
		encodeTime(invite.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (r *InviteRepository) Get(ctx context.Context, id string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, allowed_client_public_key, label, created_at, used_at
		FROM invites
		WHERE id = ?
	`, id)

	invite, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Invite{}, ErrNotFound
		}
		return domain.Invite{}, fmt.Errorf("query invite: %w", err)
	}
	return invite, nil
}

// List returns all invites, newest first.
func (r *InviteRepository) List(ctx context.Context) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, allowed_client_public_key, label, created_at, used_at
		FROM invites
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query invites: %w", err)
	}
	defer rows.Close()

	invites := []domain.Invite{}
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}
	return invites, nil
}

// MarkUsed stamps used_at on an unredeemed invite. The conditional
// update is the single-redemption point: exactly one concurrent caller
// observes redeemed == true.
func (r *InviteRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invites SET used_at = ? WHERE id = ? AND used_at IS NULL
	`, encodeTime(usedAt), id)
	if err != nil {
		return false, fmt.Errorf("mark invite used: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark invite used rows affected: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var invite domain.Invite
	var createdAt string
	var usedAt sql.NullString

	if err := row.Scan(&invite.ID, &invite.AllowedClientPublicKey, &invite.Label, &createdAt, &usedAt); err != nil {
		return domain.Invite{}, err
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return domain.Invite{}, err
	}
	invite.CreatedAt = created

	if usedAt.Valid {
		used, err := parseTime(usedAt.String)
		if err != nil {
			return domain.Invite{}, err
		}
		invite.UsedAt = &used
	}
	return invite, nil
}
