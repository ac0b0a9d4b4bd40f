package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra/auth"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// Register создает новый аккаунт. Единственная публичная операция над users.
// POST /v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in domain.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.Create(r.Context(), in)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Me возвращает аккаунт владельца токена
// GET /v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	u, err := h.service.Get(r.Context(), claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Get возвращает аккаунт по ID. Чужие аккаунты видит только суперпользователь.
// GET /v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")
	if id != claims.UserID && !claims.IsSuperuser {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List возвращает страницу пользователей для админки
// GET /v1/users?offset=0&limit=50
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.service.List(r.Context(), offset, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Update частично обновляет аккаунт (самого себя либо суперпользователем)
// PATCH /v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	var upd domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.Update(r.Context(), claims, id, upd)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListTypes отдает справочник типов аккаунтов
// GET /v1/users/types
func (h *UserHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.UserTypes(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// CreateType добавляет тип аккаунта в справочник
// POST /v1/users/types
func (h *UserHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ut, err := h.service.CreateUserType(r.Context(), in.Name, in.Description)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ut)
}

// Delete скрывает аккаунт (soft delete); ?hard=true удаляет запись навсегда
// DELETE /v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hard := r.URL.Query().Get("hard") == "true"

	if err := h.service.Delete(r.Context(), id, hard); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
