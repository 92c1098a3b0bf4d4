package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
)

const maxContentLength = 5000

type MessageService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	events        *feed.Feed
	log           *zap.SugaredLogger
}

func NewMessageService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	events *feed.Feed,
	log *zap.SugaredLogger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		events:        events,
		log:           log,
	}
}

// Send validates and stores a message, advances the conversation's
// last-message pointer and publishes the insert to the change feed.
//
// The pointer update is deliberately non-fatal: the message row is the source
// of truth, the pointer only feeds the inbox snapshot. If the update fails
// the send still succeeds and the snapshot goes stale until the next send.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrValidation)
	}
	if len([]rune(content)) > maxContentLength {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", domain.ErrValidation, maxContentLength)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, domain.ErrUnauthorized
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     conv.CounterpartOf(senderID),
		Content:        content,
		IsRead:         false,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.conversations.SetLastMessage(ctx, conversationID, msg.ID); err != nil {
		s.log.Warnw("last message pointer update failed",
			"conversation_id", conversationID, "message_id", msg.ID, "err", err)
	}

	if s.events != nil {
		s.events.Publish(msg)
	}
	return msg, nil
}

// List returns the full history of a conversation in chronological order,
// restricted to its participants.
func (s *MessageService) List(ctx context.Context, conversationID, viewerID string) ([]*domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.HasParticipant(viewerID) {
		return nil, domain.ErrUnauthorized
	}
	return s.messages.ListForConversation(ctx, conversationID)
}

// MarkRead flips every unread message addressed to the viewer. Idempotent.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, viewerID string) error {
	return s.messages.MarkAllRead(ctx, conversationID, viewerID)
}

// CountUnread returns the viewer's unread badge for one conversation.
func (s *MessageService) CountUnread(ctx context.Context, conversationID, viewerID string) (int, error) {
	return s.messages.CountUnread(ctx, conversationID, viewerID)
}
