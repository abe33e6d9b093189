package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coppice-chat/coppice/internal/domain"
)

// MessageRepository stores text-channel history.
type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(ctx context.Context, message domain.ChannelMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, author_public_key, author_name, content_markdown, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		message.ID,
		message.ChannelID,
		message.Author.PublicKey,
		message.Author.DisplayName,
		message.ContentMarkdown,
		encodeTime(message.CreatedAt),
		encodeTime(message.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListNewestFirst returns up to limit of a channel's most recent
// messages, newest first. Callers reverse for chronological order.
func (r *MessageRepository) ListNewestFirst(ctx context.Context, channelID string, limit int) ([]domain.ChannelMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, channel_id, author_public_key, author_name, content_markdown, created_at, updated_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChannelMessage{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (domain.ChannelMessage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, channel_id, author_public_key, author_name, content_markdown, created_at, updated_at
		FROM messages
		WHERE id = ?
	`, id)

	message, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ChannelMessage{}, ErrNotFound
		}
		return domain.ChannelMessage{}, fmt.Errorf("query message: %w", err)
	}
	return message, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET content_markdown = ?, updated_at = ? WHERE id = ?
	`, content, encodeTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMessage(row rowScanner) (domain.ChannelMessage, error) {
	var message domain.ChannelMessage
	var createdAt, updatedAt string

	if err := row.Scan(
		&message.ID,
		&message.ChannelID,
		&message.Author.PublicKey,
		&message.Author.DisplayName,
		&message.ContentMarkdown,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.ChannelMessage{}, err
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return domain.ChannelMessage{}, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return domain.ChannelMessage{}, err
	}
	message.CreatedAt = created
	message.UpdatedAt = updated
	return message, nil
}
