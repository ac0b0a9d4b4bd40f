package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra/auth"
)

type AddressHandler struct {
	service *service.AddressService
}

func NewAddressHandler(s *service.AddressService) *AddressHandler {
	return &AddressHandler{service: s}
}

// Create добавляет адрес владельцу токена
// POST /v1/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	var a domain.Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), claims.UserID, &a)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List возвращает адреса владельца токена
// GET /v1/addresses?active=true
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	activeOnly := r.URL.Query().Get("active") != "false"

	addrs, err := h.service.List(r.Context(), claims.UserID, activeOnly)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

// Get возвращает один адрес; чужие адреса недоступны
// GET /v1/addresses/{id}
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Update частично обновляет адрес
// PATCH /v1/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())

	var upd domain.AddressUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	a, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), claims.UserID, upd)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete деактивирует адрес (записи об адресах не удаляются физически)
// DELETE /v1/addresses/{id}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
