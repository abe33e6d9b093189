package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/coppice-chat/coppice/internal/database"
	"github.com/coppice-chat/coppice/internal/domain"
	apperrors "github.com/coppice-chat/coppice/internal/errors"
	"github.com/coppice-chat/coppice/internal/logging"
)

const (
	maxMessageLength = 4000
	defaultListLimit = 100
	maxListLimit     = 100
)

// ListMessages returns up to limit recent messages of a text channel in
// chronological order. limit <= 0 means the default page size.
func (s *State) ListMessages(ctx context.Context, token, channelID string, limit int) ([]domain.ChannelMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authenticateSessionLocked(ctx, token); err != nil {
		return nil, err
	}
	if err := s.requireTextChannelLocked(channelID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	messages, err := s.messages.ListNewestFirst(ctx, channelID, limit)
	if err != nil {
		return nil, apperrors.InternalError("list messages", err)
	}

	// SQL pages newest-first; clients read oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreateMessage appends a message to a text channel and fans the event
// out to live subscribers. The event fires only after the row is
// durable.
func (s *State) CreateMessage(ctx context.Context, token, channelID, content string) (domain.ChannelMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authenticateSessionLocked(ctx, token)
	if err != nil {
		return domain.ChannelMessage{}, err
	}
	if err := s.requireTextChannelLocked(channelID); err != nil {
		return domain.ChannelMessage{}, err
	}
	content, err = validateContent(content)
	if err != nil {
		return domain.ChannelMessage{}, err
	}

	now := s.clock.Now().UTC()
	message := domain.ChannelMessage{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Author: domain.MessageAuthor{
			PublicKey:   identity.PublicKey,
			DisplayName: identity.DisplayName,
		},
		ContentMarkdown: content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return domain.ChannelMessage{}, apperrors.InternalError("store message", err)
	}

	s.hub.Publish(channelID, domain.ChannelEvent{Type: domain.EventMessageCreated, Message: &message})
	return message, nil
}

// EditMessage replaces a message's content. Any authenticated member
// may edit; authorship attribution stays with the original author and
// the edit bumps updatedAt so it never moves backwards.
func (s *State) EditMessage(ctx context.Context, token, channelID, messageID, content string) (domain.ChannelMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authenticateSessionLocked(ctx, token); err != nil {
		return domain.ChannelMessage{}, err
	}
	if err := s.requireTextChannelLocked(channelID); err != nil {
		return domain.ChannelMessage{}, err
	}
	content, err := validateContent(content)
	if err != nil {
		return domain.ChannelMessage{}, err
	}

	message, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.ChannelMessage{}, apperrors.NotFoundError("message_not_found", "message does not exist")
		}
		return domain.ChannelMessage{}, apperrors.InternalError("look up message", err)
	}
	if message.ChannelID != channelID {
		return domain.ChannelMessage{}, apperrors.NotFoundError("message_not_found", "message does not exist in this channel")
	}

	now := s.clock.Now().UTC()
	if now.Before(message.UpdatedAt) {
		now = message.UpdatedAt
	}
	if err := s.messages.UpdateContent(ctx, messageID, content, now); err != nil {
		return domain.ChannelMessage{}, apperrors.InternalError("update message", err)
	}
	message.ContentMarkdown = content
	message.UpdatedAt = now

	s.hub.Publish(channelID, domain.ChannelEvent{Type: domain.EventMessageUpdated, Message: &message})
	return message, nil
}

// SubscribeChannelEvents registers a live event subscription on a text
// channel. The returned cancel is idempotent and must be called when
// the consumer goes away; the channel is closed on cancel or shutdown.
func (s *State) SubscribeChannelEvents(ctx context.Context, token, channelID string) (<-chan domain.ChannelEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.authenticateSessionLocked(ctx, token); err != nil {
		return nil, nil, err
	}
	if err := s.requireTextChannelLocked(channelID); err != nil {
		return nil, nil, err
	}

	id, events := s.hub.Subscribe(channelID)
	logging.WithChannel(channelID).Debug("Subscriber added", "subscriber_id", id.String())

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.hub.Unsubscribe(channelID, id)
	}
	return events, cancel, nil
}

func (s *State) requireTextChannelLocked(channelID string) error {
	channel, exists := s.profile.FindChannel(channelID)
	if !exists {
		return apperrors.NotFoundError("channel_not_found", "channel does not exist")
	}
	if channel.Type != domain.ChannelTypeText {
		return apperrors.ValidationError("not_text_channel", "channel is not a text channel")
	}
	return nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.ValidationError("empty_content", "message content must not be empty")
	}
	if len(content) > maxMessageLength {
		return "", apperrors.ValidationError("content_too_long", fmt.Sprintf("message content exceeds %d characters", maxMessageLength))
	}
	return content, nil
}
