package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/xela07ax/userhub/internal/domain"
)

var ErrAddressNotFound = errors.New("address not found")

type AddressRepository interface {
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
	ListAddresses(ctx context.Context, userID string, activeOnly bool) ([]*domain.Address, error)
	CreateAddress(ctx context.Context, a *domain.Address) error
	UpdateAddress(ctx context.Context, id, userID string, upd domain.AddressUpdate) (*domain.Address, error)
	DeactivateAddress(ctx context.Context, id, userID string) (bool, error)
}

type AddressService struct {
	repo AddressRepository
}

func NewAddressService(repo AddressRepository) *AddressService {
	return &AddressService{repo: repo}
}

func (s *AddressService) Create(ctx context.Context, userID string, a *domain.Address) (*domain.Address, error) {
	if a.Label == "" || a.AddressLine1 == "" || a.City == "" || a.PostalCode == "" {
		return nil, fmt.Errorf("%w: label, address_line_1, city and postal_code are required", ErrValidation)
	}
	a.ID = uuid.New().String()
	a.UserID = userID
	a.IsActive = true
	if a.Type == "" {
		a.Type = domain.AddressShipping
	}
	if a.Country == "" {
		a.Country = "US"
	}

	if err := s.repo.CreateAddress(ctx, a); err != nil {
		return nil, fmt.Errorf("address_service: create: %w", err)
	}
	return s.getOwned(ctx, a.ID, userID)
}

func (s *AddressService) List(ctx context.Context, userID string, activeOnly bool) ([]*domain.Address, error) {
	out, err := s.repo.ListAddresses(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("address_service: list: %w", err)
	}
	return out, nil
}

func (s *AddressService) Get(ctx context.Context, id, userID string) (*domain.Address, error) {
	return s.getOwned(ctx, id, userID)
}

func (s *AddressService) Update(ctx context.Context, id, userID string, upd domain.AddressUpdate) (*domain.Address, error) {
	a, err := s.repo.UpdateAddress(ctx, id, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("address_service: update: %w", err)
	}
	if a == nil {
		return nil, ErrAddressNotFound
	}
	return a, nil
}

func (s *AddressService) Deactivate(ctx context.Context, id, userID string) error {
	ok, err := s.repo.DeactivateAddress(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("address_service: deactivate: %w", err)
	}
	if !ok {
		return ErrAddressNotFound
	}
	return nil
}

// getOwned отдает адрес только его владельцу
func (s *AddressService) getOwned(ctx context.Context, id, userID string) (*domain.Address, error) {
	a, err := s.repo.GetAddress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("address_service: get: %w", err)
	}
	if a == nil || a.UserID != userID {
		return nil, ErrAddressNotFound
	}
	return a, nil
}
