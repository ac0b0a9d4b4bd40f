package obs

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Тип для ключей в контексте (избегаем коллизий)
type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

// NewRequestID генерирует свежий корреляционный идентификатор.
// UUID v4 — случайные 128 бит, коллизии при конкурентных запросах исключены.
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID кладет идентификатор в контекст запроса
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom помогает безопасно достать ID в любом месте кода
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// userHolder — изменяемая ячейка под ID пользователя. Interceptor ставит ее
// до аутентификации, auth-middleware заполняет после проверки токена. Через
// обычный context.WithValue это не выразить: middleware-цепочка делает копии
// запроса, и родительский контекст дочерних значений не видит.
type userHolder struct {
	mu sync.Mutex
	id string
}

// WithUserTracking устанавливает ячейку для ID пользователя
func WithUserTracking(ctx context.Context) context.Context {
	return context.WithValue(ctx, userIDKey, &userHolder{})
}

// SetUserID записывает ID аутентифицированного пользователя.
// Вызывается из auth-middleware после проверки токена.
func SetUserID(ctx context.Context, id string) {
	if h, ok := ctx.Value(userIDKey).(*userHolder); ok {
		h.mu.Lock()
		h.id = id
		h.mu.Unlock()
	}
}

func UserIDFrom(ctx context.Context) string {
	if h, ok := ctx.Value(userIDKey).(*userHolder); ok {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.id
	}
	return ""
}
