package service

import (
	"context"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/infra"
	"github.com/xela07ax/userhub/internal/monitor"
	"github.com/xela07ax/userhub/internal/obs"
	"github.com/xela07ax/userhub/internal/repository/postgres"
	"go.uber.org/zap"
)

// LogStore — контракт хранилища событий для аналитики
type LogStore interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]obs.Event, error)
	SearchEvents(ctx context.Context, p postgres.SearchParams) ([]obs.Event, error)
}

// MonitorService связывает хранилище событий с чистыми функциями анализатора
// и оценщиком алертов. Сам состояния не держит: каждый запрос — свежая
// выборка окна и пересчет с нуля.
type MonitorService struct {
	store     LogStore
	evaluator *monitor.Evaluator
	cfg       infra.AnalyzerConfig
	logger    *zap.Logger
}

func NewMonitorService(store LogStore, evaluator *monitor.Evaluator, cfg infra.AnalyzerConfig, logger *zap.Logger) *MonitorService {
	return &MonitorService{
		store:     store,
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger.Named("monitor-service"),
	}
}

// ClampHours прижимает запрошенную ширину окна к настроенному потолку
func (m *MonitorService) ClampHours(hours int) int {
	if hours <= 0 {
		hours = 1
	}
	if m.cfg.MaxWindowHours > 0 && hours > m.cfg.MaxWindowHours {
		hours = m.cfg.MaxWindowHours
	}
	return hours
}

func (m *MonitorService) fetch(ctx context.Context, hours int, now time.Time) ([]obs.Event, monitor.Window, error) {
	w := monitor.Window{Start: now.Add(-time.Duration(hours) * time.Hour), End: now}
	events, err := m.store.FetchWindow(ctx, w.Start, w.End)
	if err != nil {
		// Ошибка выборки — громкий сигнал, не пустая сводка
		m.logger.Error("log window fetch failed", zap.Error(err))
		return nil, w, err
	}
	return events, w, nil
}

func (m *MonitorService) Errors(ctx context.Context, hours, topN int) (domain.ErrorSummary, error) {
	events, w, err := m.fetch(ctx, m.ClampHours(hours), time.Now().UTC())
	if err != nil {
		return domain.ErrorSummary{}, err
	}
	return monitor.ErrorSummary(events, w, topN), nil
}

func (m *MonitorService) Performance(ctx context.Context, hours int) (domain.PerformanceSummary, error) {
	events, w, err := m.fetch(ctx, m.ClampHours(hours), time.Now().UTC())
	if err != nil {
		return domain.PerformanceSummary{}, err
	}
	return monitor.PerformanceSummary(events, w, m.cfg.P95ThresholdMS), nil
}

func (m *MonitorService) Security(ctx context.Context, hours int) (domain.SecuritySummary, error) {
	events, w, err := m.fetch(ctx, m.ClampHours(hours), time.Now().UTC())
	if err != nil {
		return domain.SecuritySummary{}, err
	}
	return monitor.SecuritySummary(events, w, m.evaluator.Config().FailedAuthThreshold), nil
}

func (m *MonitorService) UserActivity(ctx context.Context, hours, topN int) (domain.UserActivitySummary, error) {
	events, w, err := m.fetch(ctx, m.ClampHours(hours), time.Now().UTC())
	if err != nil {
		return domain.UserActivitySummary{}, err
	}
	return monitor.UserActivity(events, w, topN), nil
}

// ActiveAlerts выбирает самое широкое из настроенных окон и пересчитывает
// все виды алертов по живым данным
func (m *MonitorService) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	now := time.Now().UTC()
	events, err := m.store.FetchWindow(ctx, now.Add(-m.evaluator.Config().MaxWindow()), now)
	if err != nil {
		m.logger.Error("log window fetch failed", zap.Error(err))
		return nil, err
	}
	return m.evaluator.Evaluate(events, now), nil
}

// Health сворачивает активные алерты в общий статус системы
func (m *MonitorService) Health(ctx context.Context) (domain.HealthStatus, error) {
	now := time.Now().UTC()
	events, err := m.store.FetchWindow(ctx, now.Add(-m.evaluator.Config().MaxWindow()), now)
	if err != nil {
		m.logger.Error("log window fetch failed", zap.Error(err))
		return domain.HealthStatus{}, err
	}
	return m.evaluator.Health(events, now), nil
}

// DailyReport строит сводку за календарные сутки (UTC)
func (m *MonitorService) DailyReport(ctx context.Context, day time.Time) (domain.DailyReport, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	events, err := m.store.FetchWindow(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		m.logger.Error("log window fetch failed", zap.Error(err))
		return domain.DailyReport{}, err
	}
	return monitor.DailyReport(events, day, m.cfg.P95ThresholdMS, time.Now().UTC()), nil
}

// Search — полнотекстовый поиск по хранилищу логов
func (m *MonitorService) Search(ctx context.Context, p postgres.SearchParams) ([]obs.Event, error) {
	if p.Limit <= 0 || p.Limit > 500 {
		p.Limit = 100
	}
	if p.From.IsZero() {
		p.From = time.Now().UTC().Add(-24 * time.Hour)
	}
	return m.store.SearchEvents(ctx, p)
}
