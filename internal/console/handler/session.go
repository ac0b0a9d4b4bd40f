package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/infra/auth"
)

type SessionHandler struct {
	service *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{service: s}
}

// List возвращает сессии владельца токена
// GET /v1/sessions?all=true — включая отозванные
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	activeOnly := r.URL.Query().Get("all") != "true"

	sessions, err := h.service.List(r.Context(), claims, claims.UserID, activeOnly)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Revoke отзывает одну сессию (выход с конкретного устройства)
// DELETE /v1/sessions/{id}
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if err := h.service.Revoke(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Logout отзывает сессию текущего токена
// POST /v1/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if err := h.service.Revoke(r.Context(), claims, claims.SessionID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup удаляет просроченные сессии всех пользователей.
// Админский рычаг в дополнение к фоновому тикеру.
// POST /v1/sessions/cleanup
func (h *SessionHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Cleanup(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// RevokeAll гасит все сессии пользователя кроме текущей
// POST /v1/sessions/revoke-all
func (h *SessionHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	n, err := h.service.RevokeAll(r.Context(), claims, claims.UserID, claims.SessionID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}
