package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
)

// FallbackName is shown when a participant's profile cannot be resolved.
const FallbackName = "Usuário"

// ProfileService resolves display profiles with a safe fallback: the inbox
// must never fail to render because an account row is missing.
type ProfileService struct {
	profiles domain.ProfileRepository
	log      *zap.SugaredLogger
}

func NewProfileService(profiles domain.ProfileRepository, log *zap.SugaredLogger) *ProfileService {
	return &ProfileService{profiles: profiles, log: log}
}

// Resolve returns the stored profile for the user, or a synthetic placeholder
// when the lookup misses or fails. It never returns an error.
func (s *ProfileService) Resolve(ctx context.Context, userID string) *domain.Profile {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		s.log.Debugw("profile lookup failed, using fallback", "user_id", userID, "err", err)
	}
	if p == nil {
		return &domain.Profile{ID: userID, Name: FallbackName}
	}
	if p.Name == "" {
		p.Name = FallbackName
	}
	return p
}

// Sync upserts a profile row pushed from the platform's account service.
func (s *ProfileService) Sync(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		return domain.ErrValidation
	}
	return s.profiles.Upsert(ctx, p)
}
