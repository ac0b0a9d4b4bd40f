package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/repository/postgres"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("username or email already taken")
	ErrUserTypeExists = errors.New("user type name already taken")
	ErrForbidden      = errors.New("not enough permissions")
	ErrValidation     = errors.New("validation failed")
)

// UserRepository описывает требования к хранилищу учетных записей
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context, offset, limit int) ([]*domain.User, error)
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate, newHash string) (*domain.User, error)
	DeleteUser(ctx context.Context, id string, hard bool) (bool, error)
	ListUserTypes(ctx context.Context) ([]*domain.UserType, error)
	CreateUserType(ctx context.Context, ut *domain.UserType) error
}

type UserService struct {
	repo       UserRepository
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(repo UserRepository, bcryptCost int, logger *zap.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost, logger: logger.Named("user-service")}
}

func (s *UserService) Create(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	if err := validateUserCreate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("user_service: hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user_service: create: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user_service: get: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	users, err := s.repo.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("user_service: list: %w", err)
	}
	return users, nil
}

// Update меняет аккаунт. Обычный пользователь может править только себя,
// суперпользователь — кого угодно.
func (s *UserService) Update(ctx context.Context, actor *domain.CustomClaims, id string, upd domain.UserUpdate) (*domain.User, error) {
	if actor.UserID != id && !actor.IsSuperuser {
		return nil, ErrForbidden
	}
	// Поля is_active и user_type_id обычному пользователю недоступны
	if (upd.IsActive != nil || upd.UserTypeID != nil) && !actor.IsSuperuser {
		return nil, ErrForbidden
	}

	newHash := ""
	if upd.Password != nil {
		if len(*upd.Password) < 8 {
			return nil, fmt.Errorf("%w: password too short", ErrValidation)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("user_service: hash password: %w", err)
		}
		newHash = string(hash)
	}

	u, err := s.repo.UpdateUser(ctx, id, upd, newHash)
	if err != nil {
		return nil, fmt.Errorf("user_service: update: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id string, hard bool) error {
	ok, err := s.repo.DeleteUser(ctx, id, hard)
	if err != nil {
		return fmt.Errorf("user_service: delete: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.Bool("hard", hard))
	return nil
}

// UserTypes отдает справочник типов аккаунтов
func (s *UserService) UserTypes(ctx context.Context) ([]*domain.UserType, error) {
	types, err := s.repo.ListUserTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("user_service: list types: %w", err)
	}
	return types, nil
}

// CreateUserType добавляет запись в справочник (только суперпользователь)
func (s *UserService) CreateUserType(ctx context.Context, name, description string) (*domain.UserType, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: type name is required", ErrValidation)
	}

	ut := &domain.UserType{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	if err := s.repo.CreateUserType(ctx, ut); err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			return nil, ErrUserTypeExists
		}
		return nil, fmt.Errorf("user_service: create type: %w", err)
	}

	s.logger.Info("user type created", zap.String("type_id", ut.ID), zap.String("name", name))
	return ut, nil
}

func validateUserCreate(in domain.UserCreate) error {
	switch {
	case len(in.Username) < 3:
		return fmt.Errorf("%w: username too short", ErrValidation)
	case !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: invalid email", ErrValidation)
	case len(in.Password) < 8:
		return fmt.Errorf("%w: password too short", ErrValidation)
	}
	return nil
}
