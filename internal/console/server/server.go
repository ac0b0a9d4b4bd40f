package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/userhub/internal/console/handler"
	"github.com/xela07ax/userhub/internal/infra"
	"github.com/xela07ax/userhub/internal/infra/auth"
	"github.com/xela07ax/userhub/internal/obs"
	"go.uber.org/zap"
)

type APIServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Перехватчик запросов: генерирует события api_performance/security
	interceptor *obs.Interceptor

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator
	sessions      auth.SessionChecker

	// Обработчики бизнес-доменов
	authHandler    *handler.AuthHandler    // /v1/auth
	userHandler    *handler.UserHandler    // /v1/users
	profileHandler *handler.ProfileHandler // /v1/profiles
	addressHandler *handler.AddressHandler // /v1/addresses
	sessionHandler *handler.SessionHandler // /v1/sessions
	logsHandler    *handler.LogsHandler    // /v1/logs (мониторинг)
}

// NewAPIServer инициализирует HTTP API со всеми зависимостями
func NewAPIServer(
	cfg *infra.Config,
	logger *zap.Logger,
	interceptor *obs.Interceptor,
	validator auth.TokenValidator,
	sessions auth.SessionChecker,
	authH *handler.AuthHandler,
	userH *handler.UserHandler,
	profileH *handler.ProfileHandler,
	addressH *handler.AddressHandler,
	sessionH *handler.SessionHandler,
	logsH *handler.LogsHandler,
) *APIServer {
	s := &APIServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("api"),
		cfg:            cfg,
		interceptor:    interceptor,
		authValidator:  validator,
		sessions:       sessions,
		authHandler:    authH,
		userHandler:    userH,
		profileHandler: profileH,
		addressHandler: addressH,
		sessionHandler: sessionH,
		logsHandler:    logsH,
	}

	s.routes()
	return s
}

func (s *APIServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	// RealIP — до перехватчика, чтобы в событиях был адрес клиента, а не прокси.
	// Recoverer снаружи перехватчика: перехватчик ловит панику первым,
	// фиксирует её как CRITICAL и пробрасывает дальше, а уже внешний
	// Recoverer отдает клиенту 500.
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.interceptor.Handler)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин и регистрация доступны без токена
		r.Post("/v1/auth/token", s.authHandler.Login)
		r.Post("/v1/users", s.userHandler.Register)

		// Liveness для балансировщика
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		// Метрики Prometheus
		r.Handle("/metrics", promhttp.Handler())
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.sessions, s.logger))

		r.Post("/v1/auth/logout", s.sessionHandler.Logout)

		// Аккаунты
		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", s.userHandler.Me)
			r.Get("/types", s.userHandler.ListTypes) // Справочник типов аккаунтов
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.userHandler.Get)
				r.Patch("/", s.userHandler.Update)
			})
		})

		// Профили
		r.Route("/v1/profiles", func(r chi.Router) {
			r.Get("/me", s.profileHandler.Me)
			r.Patch("/me", s.profileHandler.Update)
			r.Get("/{userID}", s.profileHandler.GetPublic) // Публичное представление
		})

		// Адреса
		r.Route("/v1/addresses", func(r chi.Router) {
			r.Get("/", s.addressHandler.List)
			r.Post("/", s.addressHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.addressHandler.Get)
				r.Patch("/", s.addressHandler.Update)
				r.Delete("/", s.addressHandler.Delete)
			})
		})

		// Сессии (управление устройствами)
		r.Route("/v1/sessions", func(r chi.Router) {
			r.Get("/", s.sessionHandler.List)
			r.Post("/revoke-all", s.sessionHandler.RevokeAll)
			r.Delete("/{id}", s.sessionHandler.Revoke)
		})

		// --- 4. АДМИНКА (Только суперпользователи) ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSuperuser)

			r.Get("/v1/users", s.userHandler.List)
			r.Post("/v1/users/types", s.userHandler.CreateType)
			r.Delete("/v1/users/{id}", s.userHandler.Delete)
			r.Post("/v1/sessions/cleanup", s.sessionHandler.Cleanup)

			// Мониторинг поверх хранилища логов
			r.Route("/v1/logs", func(r chi.Router) {
				r.Get("/health", s.logsHandler.Health)
				r.Get("/errors", s.logsHandler.Errors)
				r.Get("/performance", s.logsHandler.Performance)
				r.Get("/security", s.logsHandler.Security)
				r.Get("/users/activity", s.logsHandler.UserActivity)
				r.Get("/alerts/active", s.logsHandler.ActiveAlerts)
				r.Get("/report/daily", s.logsHandler.DailyReport)
				r.Get("/search", s.logsHandler.Search)
			})
		})
	})
}

// ServeHTTP позволяет использовать APIServer как стандартный http.Handler
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
