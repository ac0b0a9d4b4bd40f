package service

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/userhub/internal/infra"
	"go.uber.org/zap"
)

// RevocationCache держит множество отозванных сессий в памяти процесса,
// чтобы auth-middleware отвечал без похода в сеть. Источник правды — Redis:
// Set хранит состояние для прогрева при старте, Pub/Sub доносит отзывы
// до всех инстансов API в реальном времени.
type RevocationCache struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewRevocationCache(rdb *redis.Client, logger *zap.Logger) *RevocationCache {
	return &RevocationCache{
		revoked: make(map[string]struct{}),
		rdb:     rdb,
		logger:  logger.Named("revocation-cache"),
	}
}

// Init загружает текущее множество отозванных сессий при старте сервиса
func (c *RevocationCache) Init(ctx context.Context) error {
	ids, err := c.rdb.SMembers(ctx, infra.RedisKeyRevokedSessions).Result()
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, id := range ids {
		c.revoked[id] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// IsRevoked реализует auth.SessionChecker
func (c *RevocationCache) IsRevoked(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.revoked[sessionID]
	return ok
}

// MarkRevoked — внутренний метод для обновления мапы
func (c *RevocationCache) MarkRevoked(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[sessionID] = struct{}{}
}

// StartListener подписывается на Redis и обновляет локальное состояние.
// Завершается по ctx.
func (c *RevocationCache) StartListener(ctx context.Context) {
	// Канал должен совпадать с тем, что публикует SessionService
	pubsub := c.rdb.Subscribe(ctx, infra.RedisChanSessionRevoked)
	defer pubsub.Close()

	ch := pubsub.Channel()
	c.logger.Info("session revocation listener started")

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				c.logger.Warn("revocation channel closed")
				return
			}
			c.logger.Info("session revoked signal", zap.String("session_id", msg.Payload))
			c.MarkRevoked(msg.Payload)

		case <-ctx.Done():
			c.logger.Info("revocation listener stopping by context...")
			return
		}
	}
}
