package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_one, participant_two, last_message_id, created_at, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?)
	`, c.ID, c.ParticipantOne, c.ParticipantTwo, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, participant_one, participant_two, last_message_id, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.ParticipantOne,
		&c.ParticipantTwo,
		&c.LastMessageID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// FindByParticipants looks up the conversation for a canonical participant
// pair. LIMIT 1 is defensive; the unique index keeps the pair to one row.
func (r *ConversationRepo) FindByParticipants(ctx context.Context, one, two string) (*domain.Conversation, error) {
	query := `
		SELECT id, participant_one, participant_two, last_message_id, created_at, updated_at
		FROM conversations
		WHERE participant_one = ? AND participant_two = ?
		LIMIT 1
	`
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, one, two).Scan(
		&c.ID,
		&c.ParticipantOne,
		&c.ParticipantTwo,
		&c.LastMessageID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	query := `
		SELECT id, participant_one, participant_two, last_message_id, created_at, updated_at
		FROM conversations
		WHERE participant_one = ? OR participant_two = ?
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(
			&c.ID,
			&c.ParticipantOne,
			&c.ParticipantTwo,
			&c.LastMessageID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_id = ?, updated_at = ?
		WHERE id = ?
	`, messageID, time.Now().UTC(), conversationID)
	if err != nil {
		return fmt.Errorf("set last message: %w", err)
	}
	return nil
}
