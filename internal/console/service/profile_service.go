package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xela07ax/userhub/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error)
}

// accountSource отдает аккаунт владельца анкеты: для публичного
// просмотра нужен email, которого в profiles нет
type accountSource interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type ProfileService struct {
	repo  ProfileRepository
	users accountSource
}

func NewProfileService(repo ProfileRepository, users accountSource) *ProfileService {
	return &ProfileService{repo: repo, users: users}
}

// GetOrCreate возвращает анкету владельца, создавая пустую при первом обращении
func (s *ProfileService) GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile_service: get: %w", err)
	}
	if p != nil {
		return p, nil
	}

	p = &domain.Profile{
		ID:         uuid.New().String(),
		UserID:     userID,
		Visibility: domain.VisibilityPrivate,
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("profile_service: create: %w", err)
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	// Анкета создается лениво: апдейт до первого чтения тоже должен работать
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("profile_service: update: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// GetPublic возвращает чужую анкету с учетом приватности
func (s *ProfileService) GetPublic(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile_service: get public: %w", err)
	}
	if p == nil || p.Visibility != domain.VisibilityPublic {
		return nil, ErrProfileNotFound
	}

	// Подставляем email аккаунта; PublicView уберет его, если владелец скрыл
	if u, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("profile_service: get account: %w", err)
	} else if u != nil {
		p.Email = u.Email
	}

	view := p.PublicView()
	return &view, nil
}
