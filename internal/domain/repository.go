package domain

import (
	"context"
)

// ProfileRepository defines read access to display profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

// ConversationRepository defines persistence operations for conversations.
// FindByParticipants and Create expect the participant pair in canonical
// order; Create returns ErrConflict when the pair already exists.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	FindByParticipants(ctx context.Context, one, two string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*Conversation, error)
	SetLastMessage(ctx context.Context, conversationID, messageID string) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListForConversation(ctx context.Context, conversationID string) ([]*Message, error)
	MarkAllRead(ctx context.Context, conversationID, receiverID string) error
	CountUnread(ctx context.Context, conversationID, receiverID string) (int, error)
}
