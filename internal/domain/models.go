package domain

import "time"

// Profile is the display projection of a user account. Accounts themselves
// are owned by the platform's auth layer; this service only reads names and
// avatars for rendering the inbox.
type Profile struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// Conversation is a persistent two-party messaging thread. Participants are
// stored in canonical (lexicographic) order so the pair is unique regardless
// of who started the thread.
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	ParticipantOne string    `db:"participant_one" json:"participant_one"`
	ParticipantTwo string    `db:"participant_two" json:"participant_two"`
	LastMessageID  *string   `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the given user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantOne == userID || c.ParticipantTwo == userID
}

// CounterpartOf returns the other participant relative to the given user.
func (c *Conversation) CounterpartOf(userID string) string {
	if c.ParticipantOne == userID {
		return c.ParticipantTwo
	}
	return c.ParticipantOne
}

// Message is a single chat message. Messages are append-only; the only
// mutation ever applied is flipping IsRead from false to true.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	ReceiverID     string    `db:"receiver_id" json:"receiver_id"`
	Content        string    `db:"content" json:"content"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ListingRef is the snapshot of a marketplace listing used to compose the
// opening message of a "contact seller" flow.
type ListingRef struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

// InboxEntry is the formatted conversation view shown in the inbox list.
// Recomputed on every load, never persisted.
type InboxEntry struct {
	ConversationID string   `json:"conversation_id"`
	Counterpart    *Profile `json:"counterpart"`
	LastMessage    *Message `json:"last_message,omitempty"`
	UnreadCount    int      `json:"unread_count"`
}
