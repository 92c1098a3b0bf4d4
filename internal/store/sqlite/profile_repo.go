package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
)

type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

var _ domain.ProfileRepository = (*ProfileRepo)(nil)

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, name, avatar_url
		FROM profiles
		WHERE id = ?
	`
	p := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.AvatarURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Upsert writes the profile row synced from the platform's account service.
func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, avatar_url)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, avatar_url = excluded.avatar_url
	`, p.ID, p.Name, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
