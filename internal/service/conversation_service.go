package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
)

type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	profiles      *ProfileService
	log           *zap.SugaredLogger
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	profiles *ProfileService,
	log *zap.SugaredLogger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		log:           log,
	}
}

// canonicalPair orders two participant ids so that every (A, B) and (B, A)
// maps to the same stored pair.
func canonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// FindOrCreate returns the single conversation between the two users,
// creating it on first contact. A unique-constraint conflict on insert means
// a concurrent call created the pair first; it is treated as "found".
func (s *ConversationService) FindOrCreate(ctx context.Context, selfID, otherID string) (*domain.Conversation, error) {
	if selfID == "" || otherID == "" {
		return nil, fmt.Errorf("%w: participant id is required", domain.ErrValidation)
	}
	if selfID == otherID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", domain.ErrValidation)
	}

	one, two := canonicalPair(selfID, otherID)

	existing, err := s.conversations.FindByParticipants(ctx, one, two)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv := &domain.Conversation{
		ParticipantOne: one,
		ParticipantTwo: two,
	}
	err = s.conversations.Create(ctx, conv)
	if errors.Is(err, domain.ErrConflict) {
		existing, ferr := s.conversations.FindByParticipants(ctx, one, two)
		if ferr != nil {
			return nil, fmt.Errorf("refetch after conflict: %w", ferr)
		}
		if existing == nil {
			return nil, domain.ErrInternal
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get returns the conversation if the viewer participates in it.
func (s *ConversationService) Get(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error) {
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
	return conv, nil
}

// Inbox assembles the formatted conversation list for the viewer: counterpart
// profile, last message snapshot and unread badge per conversation.
func (s *ConversationService) Inbox(ctx context.Context, viewerID string) ([]*domain.InboxEntry, error) {
	convs, err := s.conversations.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	entries := make([]*domain.InboxEntry, 0, len(convs))
	for _, conv := range convs {
		entry := &domain.InboxEntry{
			ConversationID: conv.ID,
			Counterpart:    s.profiles.Resolve(ctx, conv.CounterpartOf(viewerID)),
		}

		if conv.LastMessageID != nil {
			last, err := s.messages.GetByID(ctx, *conv.LastMessageID)
			if err != nil {
				// stale snapshot is tolerable, the badge below still counts
				s.log.Warnw("last message lookup failed", "conversation_id", conv.ID, "err", err)
			}
			entry.LastMessage = last
		}

		unread, err := s.messages.CountUnread(ctx, conv.ID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		entry.UnreadCount = unread

		entries = append(entries, entry)
	}
	return entries, nil
}
