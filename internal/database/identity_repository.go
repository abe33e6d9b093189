package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coppice-chat/coppice/internal/crypto"
	"github.com/coppice-chat/coppice/internal/domain"
)

// IdentityRepository persists the singleton server keypair.
type IdentityRepository struct {
	db *DB
}

func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Load returns the stored server identity, or ErrNotFound on first boot.
func (r *IdentityRepository) Load(ctx context.Context) (domain.ServerIdentity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT public_key, private_key, created_at
		FROM server_identity
		WHERE id = 1
	`)

	var publicKey, privateKey, createdAt string
	if err := row.Scan(&publicKey, &privateKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ServerIdentity{}, ErrNotFound
		}
		return domain.ServerIdentity{}, fmt.Errorf("query server identity: %w", err)
	}

	pub, err := crypto.DecodePublicKey(publicKey)
	if err != nil {
		return domain.ServerIdentity{}, fmt.Errorf("decode stored public key: %w", err)
	}
	priv, err := crypto.DecodePrivateKey(privateKey)
	if err != nil {
		return domain.ServerIdentity{}, fmt.Errorf("decode stored private key: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return domain.ServerIdentity{}, err
	}

	return domain.ServerIdentity{PublicKey: pub, PrivateKey: priv, CreatedAt: created}, nil
}

// Save stores a freshly generated identity. It fails if one already
// exists; the keypair is written once and never rotated in place.
func (r *IdentityRepository) Save(ctx context.Context, identity domain.ServerIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO server_identity (id, public_key, private_key, created_at)
		VALUES (1, ?, ?, ?)
	`,
		crypto.EncodeKey(identity.PublicKey),
		crypto.EncodeKey(identity.PrivateKey),
		encodeTime(identity.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert server identity: %w", err)
	}
	return nil
}
