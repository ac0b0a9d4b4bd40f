package service

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra/auth"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthProvider описывает доступ к учетным записям
type AuthProvider interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// SessionRecorder фиксирует новый вход в таблице сессий
type SessionRecorder interface {
	CreateSession(ctx context.Context, sess *domain.Session) error
}

type AuthService struct {
	// Валидация токенов (RS256) через embedding — AuthService одновременно
	// реализует auth.TokenValidator для middleware
	*auth.BaseValidator

	repo       AuthProvider
	sessions   SessionRecorder
	privateKey *rsa.PrivateKey
	tokenTTL   time.Duration
}

func NewAuthService(repo AuthProvider, sessions SessionRecorder, validator *auth.BaseValidator, privateKey *rsa.PrivateKey, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		BaseValidator: validator,
		repo:          repo,
		sessions:      sessions,
		privateKey:    privateKey,
		tokenTTL:      tokenTTL,
	}
}

// GenerateToken аутентифицирует пользователя и выпускает RS256 токен,
// одновременно открывая запись о сессии (device info + IP из запроса).
func (s *AuthService) GenerateToken(ctx context.Context, username, password, deviceInfo, clientIP string) (*domain.TokenResponse, error) {
	// 1. Аутентификация (источник правды — Postgres)
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil || user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	// 2. Проверка пароля (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. Claims с привязкой к сессии: токен можно отозвать точечно
	sessionID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &domain.CustomClaims{
		UserID:      user.ID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
		SessionID:   sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "userhub-api",
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	// 4. Подпись токена ЗАКРЫТЫМ КЛЮЧОМ (RS256)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	// 5. Запись сессии. В базе лежит только хэш токена
	sess := &domain.Session{
		ID:         sessionID,
		UserID:     user.ID,
		TokenHash:  hashToken(signedToken),
		ExpiresAt:  expiresAt,
		IsActive:   true,
		DeviceInfo: deviceInfo,
		IPAddress:  clientIP,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		SessionID:   sessionID,
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
