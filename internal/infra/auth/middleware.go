package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/obs"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс проверки JWT; реализуется AuthService
// через embedding BaseValidator
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// SessionChecker отвечает, не отозвана ли сессия. Валидная подпись токена
// еще не значит живую сессию: пользователь мог выйти со всех устройств.
type SessionChecker interface {
	IsRevoked(sessionID string) bool
}

type claimsKeyType struct{}

var claimsKey claimsKeyType

// ClaimsFrom достает проверенные claims в обработчике
func ClaimsFrom(ctx context.Context) *domain.CustomClaims {
	if c, ok := ctx.Value(claimsKey).(*domain.CustomClaims); ok {
		return c
	}
	return nil
}

func NewMiddleware(v TokenValidator, sessions SessionChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if sessions != nil && claims.SessionID != "" && sessions.IsRevoked(claims.SessionID) {
				logger.Warn("revoked session rejected",
					zap.String("session_id", claims.SessionID),
					zap.String("user_id", claims.UserID))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст + отмечаем пользователя
			// для события api_performance текущего запроса
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			obs.SetUserID(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperuser пускает дальше только администраторов.
// Вешается поверх NewMiddleware на служебные маршруты (мониторинг, списки).
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil || !claims.IsSuperuser {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
