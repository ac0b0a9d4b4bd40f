package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository — контракт хранилища сессий
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListUserSessions(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error)
	RevokeSession(ctx context.Context, id string) (bool, error)
	RevokeUserSessions(ctx context.Context, userID, excludeID string) ([]string, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// SessionService управляет жизненным циклом сессий: список, отзыв,
// зачистка просроченных. Каждый отзыв фиксируется в Redis Set и
// транслируется по Pub/Sub, чтобы кэши всех инстансов узнали о нём.
type SessionService struct {
	repo   SessionRepository
	rdb    *redis.Client
	cache  *RevocationCache
	logger *zap.Logger
}

func NewSessionService(repo SessionRepository, rdb *redis.Client, cache *RevocationCache, logger *zap.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		rdb:    rdb,
		cache:  cache,
		logger: logger.Named("session-service"),
	}
}

// List возвращает сессии пользователя. Смотреть чужие сессии может
// только суперпользователь.
func (s *SessionService) List(ctx context.Context, actor *domain.CustomClaims, userID string, activeOnly bool) ([]*domain.Session, error) {
	if actor.UserID != userID && !actor.IsSuperuser {
		return nil, ErrForbidden
	}
	sessions, err := s.repo.ListUserSessions(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return sessions, nil
	}

	// Просроченная сессия может числиться активной до штатной зачистки —
	// в списке живых ей не место
	now := time.Now()
	out := sessions[:0]
	for _, sess := range sessions {
		if sess.Expired(now) {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// Revoke отзывает одну сессию (logout текущего устройства либо
// принудительный выход с другого)
func (s *SessionService) Revoke(ctx context.Context, actor *domain.CustomClaims, sessionID string) error {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.UserID != actor.UserID && !actor.IsSuperuser {
		return ErrForbidden
	}

	revoked, err := s.repo.RevokeSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !revoked {
		// Уже неактивна — считаем отзыв идемпотентным
		return nil
	}
	return s.broadcast(ctx, sessionID)
}

// RevokeAll гасит все сессии пользователя, кроме текущей (exceptID).
// Возвращает число отозванных сессий.
func (s *SessionService) RevokeAll(ctx context.Context, actor *domain.CustomClaims, userID, exceptID string) (int, error) {
	if actor.UserID != userID && !actor.IsSuperuser {
		return 0, ErrForbidden
	}

	ids, err := s.repo.RevokeUserSessions(ctx, userID, exceptID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.broadcast(ctx, id); err != nil {
			return len(ids), err
		}
	}
	return len(ids), nil
}

// Cleanup удаляет просроченные сессии. Вызывается периодически из main.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.repo.CleanupExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

// broadcast: 1. локальный кэш, 2. Redis Set (прогрев новых инстансов),
// 3. Pub/Sub (работающие инстансы)
func (s *SessionService) broadcast(ctx context.Context, sessionID string) error {
	s.cache.MarkRevoked(sessionID)

	if err := s.rdb.SAdd(ctx, infra.RedisKeyRevokedSessions, sessionID).Err(); err != nil {
		return fmt.Errorf("redis: persist revocation: %w", err)
	}
	if err := s.rdb.Publish(ctx, infra.RedisChanSessionRevoked, sessionID).Err(); err != nil {
		return fmt.Errorf("redis: publish revocation: %w", err)
	}

	s.logger.Info("session revoked", zap.String("session_id", sessionID))
	return nil
}
