package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra/auth"
)

type ProfileHandler struct {
	service *service.ProfileService
}

func NewProfileHandler(s *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: s}
}

// Me возвращает профиль владельца токена, создавая пустой при первом обращении
// GET /v1/profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	p, err := h.service.GetOrCreate(r.Context(), claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update частично обновляет собственный профиль
// PATCH /v1/profiles/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	var upd domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.service.Update(r.Context(), claims.UserID, upd)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPublic отдает чужой профиль в урезанном публичном представлении.
// Приватные профили наружу не видны вовсе (404, а не 403 — не раскрываем
// сам факт существования).
// GET /v1/profiles/{userID}
func (h *ProfileHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	p, err := h.service.GetPublic(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
