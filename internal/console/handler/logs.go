package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/repository/postgres"
)

// LogsHandler — API мониторинга поверх хранилища логов. Доступен только
// суперпользователям (ограничение навешивается на роутере).
type LogsHandler struct {
	service *service.MonitorService
}

func NewLogsHandler(s *service.MonitorService) *LogsHandler {
	return &LogsHandler{service: s}
}

// queryHours разбирает ?hours= с дефолтом; потолок прижимает сервис
func queryHours(r *http.Request, def int) int {
	h, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || h <= 0 {
		return def
	}
	return h
}

func queryTop(r *http.Request, def int) int {
	t, err := strconv.Atoi(r.URL.Query().Get("top"))
	if err != nil || t <= 0 {
		return def
	}
	return t
}

// Health сворачивает активные алерты в статус healthy/warning/critical
// GET /v1/logs/health
func (h *LogsHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Health(r.Context())
	if err != nil {
		http.Error(w, "Failed to evaluate health", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Errors возвращает сводку ошибок за окно
// GET /v1/logs/errors?hours=24&top=10
func (h *LogsHandler) Errors(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Errors(r.Context(), queryHours(r, 24), queryTop(r, 10))
	if err != nil {
		http.Error(w, "Failed to analyze errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Performance возвращает перцентили латентности по маршрутам
// GET /v1/logs/performance?hours=24
func (h *LogsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Performance(r.Context(), queryHours(r, 24))
	if err != nil {
		http.Error(w, "Failed to analyze performance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Security возвращает сводку событий безопасности по адресам клиентов
// GET /v1/logs/security?hours=24
func (h *LogsHandler) Security(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Security(r.Context(), queryHours(r, 24))
	if err != nil {
		http.Error(w, "Failed to analyze security events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// UserActivity возвращает самых активных пользователей за окно
// GET /v1/logs/users/activity?hours=24&top=20
func (h *LogsHandler) UserActivity(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.UserActivity(r.Context(), queryHours(r, 24), queryTop(r, 20))
	if err != nil {
		http.Error(w, "Failed to analyze user activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ActiveAlerts пересчитывает все виды алертов по живым окнам
// GET /v1/logs/alerts/active
func (h *LogsHandler) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.ActiveAlerts(r.Context())
	if err != nil {
		http.Error(w, "Failed to evaluate alerts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// DailyReport строит сводку за календарные сутки
// GET /v1/logs/report/daily?date=2026-08-29 (по умолчанию — сегодня, UTC)
func (h *LogsHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	report, err := h.service.DailyReport(r.Context(), day)
	if err != nil {
		http.Error(w, "Failed to build daily report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Search — полнотекстовый поиск по логам
// GET /v1/logs/search?query=timeout&level=ERROR&hours=24&limit=100
func (h *LogsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	params := postgres.SearchParams{
		Query: q.Get("query"),
		Level: q.Get("level"),
		Limit: limit,
	}
	if hours, err := strconv.Atoi(q.Get("hours")); err == nil && hours > 0 {
		params.From = time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	}

	events, err := h.service.Search(r.Context(), params)
	if err != nil {
		http.Error(w, "Failed to search logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
