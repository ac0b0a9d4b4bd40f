package monitor

import (
	"fmt"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/obs"
)

// AlertConfig — пороги и окна по каждому виду алерта. Загружается из общего
// конфига; невалидные значения отвергаются на старте, а не молча поджимаются.
type AlertConfig struct {
	ErrorRateThreshold int           `mapstructure:"error_rate_threshold"`
	ErrorRateWindow    time.Duration `mapstructure:"error_rate_window"`

	FailedAuthThreshold int           `mapstructure:"failed_auth_threshold"`
	FailedAuthWindow    time.Duration `mapstructure:"failed_auth_window"`

	LatencyP95ThresholdMS int64         `mapstructure:"latency_p95_threshold_ms"`
	LatencyWindow         time.Duration `mapstructure:"latency_window"`

	SecurityAnomalyThreshold int           `mapstructure:"security_anomaly_threshold"`
	SecurityAnomalyWindow    time.Duration `mapstructure:"security_anomaly_window"`
}

func (c AlertConfig) Validate() error {
	checks := []struct {
		name      string
		threshold int64
		window    time.Duration
	}{
		{"error_rate", int64(c.ErrorRateThreshold), c.ErrorRateWindow},
		{"failed_auth", int64(c.FailedAuthThreshold), c.FailedAuthWindow},
		{"latency_p95", c.LatencyP95ThresholdMS, c.LatencyWindow},
		{"security_anomaly", int64(c.SecurityAnomalyThreshold), c.SecurityAnomalyWindow},
	}
	for _, ch := range checks {
		if ch.threshold <= 0 {
			return fmt.Errorf("alerts: %s threshold must be positive, got %d", ch.name, ch.threshold)
		}
		if ch.window <= 0 {
			return fmt.Errorf("alerts: %s window must be positive, got %s", ch.name, ch.window)
		}
	}
	return nil
}

// MaxWindow — самое широкое из настроенных окон: столько истории нужно
// выбрать из хранилища, чтобы оценить все виды алертов за один проход
func (c AlertConfig) MaxWindow() time.Duration {
	max := c.ErrorRateWindow
	for _, w := range []time.Duration{c.FailedAuthWindow, c.LatencyWindow, c.SecurityAnomalyWindow} {
		if w > max {
			max = w
		}
	}
	return max
}

// Evaluator не хранит состояние между вызовами: "активность" алерта каждый
// раз пересчитывается по живому окну событий. Пропущенные или переставленные
// события не приводят к дрейфу — нечему дрейфовать.
//
// Окна скользящие, привязаны к моменту оценки: [now - window, now].
// Алерт ACTIVE тогда и только тогда, когда метрика строго превышает порог.
type Evaluator struct {
	cfg AlertConfig
}

func NewEvaluator(cfg AlertConfig) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Config возвращает действующие пороги
func (ev *Evaluator) Config() AlertConfig {
	return ev.cfg
}

// Evaluate возвращает список активных алертов для окна событий.
// events должны покрывать как минимум cfg.MaxWindow() истории до now.
func (ev *Evaluator) Evaluate(events []obs.Event, now time.Time) []domain.Alert {
	alerts := []domain.Alert{}

	// 1. HighErrorRate: ERROR/CRITICAL за окно
	errStart := now.Add(-ev.cfg.ErrorRateWindow)
	errCount := 0
	for _, e := range events {
		if e.Level.AtLeast(obs.LevelError) && inWindow(e.Timestamp, errStart, now) {
			errCount++
		}
	}
	if errCount > ev.cfg.ErrorRateThreshold {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertHighErrorRate,
			WindowStart: errStart,
			WindowEnd:   now,
			Count:       errCount,
			Threshold:   ev.cfg.ErrorRateThreshold,
		})
	}

	// 2. FailedAuthBurst: отказы аутентификации по каждому адресу
	authStart := now.Add(-ev.cfg.FailedAuthWindow)
	authWindow := filterWindow(events, authStart, now)
	sec := SecuritySummary(authWindow, Window{Start: authStart, End: now}, ev.cfg.FailedAuthThreshold)
	for _, client := range sec.Clients {
		if client.Flagged {
			alerts = append(alerts, domain.Alert{
				Kind:        domain.AlertFailedAuthBurst,
				WindowStart: authStart,
				WindowEnd:   now,
				Count:       client.AuthFailures,
				Threshold:   ev.cfg.FailedAuthThreshold,
				Subject:     client.ClientIP,
			})
		}
	}

	// 3. LatencyDegradation: маршруты с p95 выше порога
	latStart := now.Add(-ev.cfg.LatencyWindow)
	latWindow := filterWindow(events, latStart, now)
	perf := PerformanceSummary(latWindow, Window{Start: latStart, End: now}, ev.cfg.LatencyP95ThresholdMS)
	for _, route := range perf.Routes {
		if route.Degraded {
			alerts = append(alerts, domain.Alert{
				Kind:        domain.AlertLatencyDegradation,
				WindowStart: latStart,
				WindowEnd:   now,
				Count:       int(route.P95MS),
				Threshold:   int(ev.cfg.LatencyP95ThresholdMS),
				Subject:     route.Route,
			})
		}
	}

	// 4. SecurityAnomaly: подозрительные паттерны (без учета отказов логина)
	anomStart := now.Add(-ev.cfg.SecurityAnomalyWindow)
	anomCount := 0
	for _, e := range events {
		if e.Category == obs.CategorySecurity && e.SecurityKind != obs.SecurityAuthFailure &&
			inWindow(e.Timestamp, anomStart, now) {
			anomCount++
		}
	}
	if anomCount > ev.cfg.SecurityAnomalyThreshold {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertSecurityAnomaly,
			WindowStart: anomStart,
			WindowEnd:   now,
			Count:       anomCount,
			Threshold:   ev.cfg.SecurityAnomalyThreshold,
		})
	}

	return alerts
}

// Health сворачивает активные алерты в общий статус системы
func (ev *Evaluator) Health(events []obs.Event, now time.Time) domain.HealthStatus {
	alerts := ev.Evaluate(events, now)

	status := "healthy"
	for _, a := range alerts {
		switch a.Kind {
		case domain.AlertHighErrorRate:
			status = "critical"
		default:
			if status != "critical" {
				status = "warning"
			}
		}
	}

	return domain.HealthStatus{
		Status:    status,
		Timestamp: now,
		Alerts:    alerts,
	}
}

func inWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}

func filterWindow(events []obs.Event, start, end time.Time) []obs.Event {
	out := make([]obs.Event, 0, len(events))
	for _, e := range events {
		if inWindow(e.Timestamp, start, end) {
			out = append(out, e)
		}
	}
	return out
}
