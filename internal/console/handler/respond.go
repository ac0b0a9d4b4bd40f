package handler

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/xela07ax/userhub/internal/console/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}

// serviceError транслирует сентинели сервисного слоя в HTTP-статусы.
// Неизвестные ошибки сворачиваются в 500 без деталей — внутренности
// базы наружу не отдаем, они уходят в лог-пайплайн.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrUserTypeExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
