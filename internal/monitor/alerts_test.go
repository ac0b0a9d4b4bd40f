package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/obs"
)

func testAlertConfig() AlertConfig {
	return AlertConfig{
		ErrorRateThreshold:       10,
		ErrorRateWindow:          5 * time.Minute,
		FailedAuthThreshold:      5,
		FailedAuthWindow:         10 * time.Minute,
		LatencyP95ThresholdMS:    5000,
		LatencyWindow:            15 * time.Minute,
		SecurityAnomalyThreshold: 20,
		SecurityAnomalyWindow:    10 * time.Minute,
	}
}

func mustEvaluator(t *testing.T, cfg AlertConfig) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func findAlert(alerts []domain.Alert, kind domain.AlertKind) *domain.Alert {
	for i := range alerts {
		if alerts[i].Kind == kind {
			return &alerts[i]
		}
	}
	return nil
}

func TestAlertConfigValidation(t *testing.T) {
	if err := testAlertConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*AlertConfig)
		substr string
	}{
		{"zero threshold", func(c *AlertConfig) { c.ErrorRateThreshold = 0 }, "error_rate"},
		{"negative threshold", func(c *AlertConfig) { c.FailedAuthThreshold = -1 }, "failed_auth"},
		{"zero window", func(c *AlertConfig) { c.LatencyWindow = 0 }, "latency_p95"},
		{"negative window", func(c *AlertConfig) { c.SecurityAnomalyWindow = -time.Second }, "security_anomaly"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testAlertConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			if !strings.Contains(err.Error(), c.substr) {
				t.Fatalf("error does not name the bad check: %v", err)
			}
			if _, err := NewEvaluator(cfg); err == nil {
				t.Fatal("NewEvaluator accepted invalid config")
			}
		})
	}
}

func TestMaxWindow(t *testing.T) {
	cfg := testAlertConfig()
	if got := cfg.MaxWindow(); got != 15*time.Minute {
		t.Fatalf("MaxWindow = %v", got)
	}
}

func TestHighErrorRateThresholdIsStrict(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	mkErrors := func(n int) []obs.Event {
		var out []obs.Event
		for i := 0; i < n; i++ {
			out = append(out, errEvent("db", "boom", -time.Duration(i+1)*time.Second))
		}
		return out
	}

	// Ровно на пороге — тихо
	if alerts := ev.Evaluate(mkErrors(10), now); findAlert(alerts, domain.AlertHighErrorRate) != nil {
		t.Fatal("alert fired at threshold, must be strictly above")
	}

	// Порог + 1 — алерт
	alerts := ev.Evaluate(mkErrors(11), now)
	a := findAlert(alerts, domain.AlertHighErrorRate)
	if a == nil {
		t.Fatal("alert not fired above threshold")
	}
	if a.Count != 11 || a.Threshold != 10 {
		t.Fatalf("alert = %+v", a)
	}
	if !a.WindowStart.Equal(now.Add(-5 * time.Minute)) || !a.WindowEnd.Equal(now) {
		t.Fatalf("window = %v .. %v", a.WindowStart, a.WindowEnd)
	}
}

func TestErrorsOutsideWindowIgnored(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	var events []obs.Event
	// 11 ошибок, но все старше окна в 5 минут
	for i := 0; i < 11; i++ {
		events = append(events, errEvent("db", "boom", -6*time.Minute))
	}
	if alerts := ev.Evaluate(events, now); len(alerts) != 0 {
		t.Fatalf("stale errors triggered alerts: %+v", alerts)
	}
}

func TestFailedAuthBurstPerIP(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	var events []obs.Event
	// 6 отказов с одного адреса, 3 с другого
	for i := 0; i < 6; i++ {
		events = append(events, secEvent("203.0.113.7", obs.SecurityAuthFailure, -time.Duration(i+1)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		events = append(events, secEvent("198.51.100.2", obs.SecurityAuthFailure, -time.Minute))
	}

	alerts := ev.Evaluate(events, now)
	a := findAlert(alerts, domain.AlertFailedAuthBurst)
	if a == nil {
		t.Fatal("burst alert not fired")
	}
	if a.Subject != "203.0.113.7" {
		t.Fatalf("subject = %s", a.Subject)
	}
	if a.Count != 6 {
		t.Fatalf("count = %d", a.Count)
	}

	// Только один адрес превысил порог
	var burstCount int
	for _, alert := range alerts {
		if alert.Kind == domain.AlertFailedAuthBurst {
			burstCount++
		}
	}
	if burstCount != 1 {
		t.Fatalf("burst alerts = %d", burstCount)
	}
}

func TestLatencyDegradationPerRoute(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	var events []obs.Event
	// Медленный маршрут: все запросы по 8с
	for i := 0; i < 20; i++ {
		events = append(events, perfEvent("/v1/logs/search", 8000, -time.Duration(i+1)*time.Second))
	}
	// Быстрый маршрут
	for i := 0; i < 20; i++ {
		events = append(events, perfEvent("/health", 3, -time.Duration(i+1)*time.Second))
	}

	alerts := ev.Evaluate(events, now)
	a := findAlert(alerts, domain.AlertLatencyDegradation)
	if a == nil {
		t.Fatal("latency alert not fired")
	}
	if a.Subject != "/v1/logs/search" {
		t.Fatalf("subject = %s", a.Subject)
	}
	if a.Count != 8000 {
		t.Fatalf("count (p95) = %d", a.Count)
	}
}

func TestSecurityAnomalyExcludesAuthFailures(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	var events []obs.Event
	// 25 отказов логина — это failed_auth_burst, но не аномалия
	for i := 0; i < 25; i++ {
		events = append(events, secEvent("10.0.0.1", obs.SecurityAuthFailure, -time.Minute))
	}
	alerts := ev.Evaluate(events, now)
	if findAlert(alerts, domain.AlertSecurityAnomaly) != nil {
		t.Fatal("auth failures counted as anomaly")
	}

	// 21 подозрительный запрос — аномалия
	events = nil
	for i := 0; i < 21; i++ {
		events = append(events, secEvent("10.0.0.2", obs.SecuritySuspiciousURL, -time.Minute))
	}
	alerts = ev.Evaluate(events, now)
	a := findAlert(alerts, domain.AlertSecurityAnomaly)
	if a == nil {
		t.Fatal("anomaly alert not fired")
	}
	if a.Count != 21 || a.Threshold != 20 {
		t.Fatalf("alert = %+v", a)
	}
}

func TestEvaluateIsStateless(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	var events []obs.Event
	for i := 0; i < 11; i++ {
		events = append(events, errEvent("db", "boom", -time.Minute))
	}

	// Повторная оценка того же окна дает тот же результат
	first := ev.Evaluate(events, now)
	second := ev.Evaluate(events, now)
	if len(first) != len(second) {
		t.Fatalf("evaluator accumulated state: %d vs %d", len(first), len(second))
	}

	// Сдвиг момента оценки за пределы окна гасит алерт без каких-либо
	// «разрешающих» событий
	later := now.Add(10 * time.Minute)
	if alerts := ev.Evaluate(events, later); len(alerts) != 0 {
		t.Fatalf("alert survived outside its window: %+v", alerts)
	}
}

func TestHealthRollup(t *testing.T) {
	ev := mustEvaluator(t, testAlertConfig())
	now := testBase

	// Без событий — healthy
	h := ev.Health(nil, now)
	if h.Status != "healthy" || len(h.Alerts) != 0 {
		t.Fatalf("empty window: %+v", h)
	}

	// Только всплеск отказов логина — warning
	var events []obs.Event
	for i := 0; i < 6; i++ {
		events = append(events, secEvent("10.0.0.1", obs.SecurityAuthFailure, -time.Minute))
	}
	h = ev.Health(events, now)
	if h.Status != "warning" {
		t.Fatalf("status = %s, want warning", h.Status)
	}

	// Добавляем шторм ошибок — critical перекрывает warning
	for i := 0; i < 11; i++ {
		events = append(events, errEvent("db", "boom", -time.Minute))
	}
	h = ev.Health(events, now)
	if h.Status != "critical" {
		t.Fatalf("status = %s, want critical", h.Status)
	}
	if len(h.Alerts) < 2 {
		t.Fatalf("expected both alerts present, got %+v", h.Alerts)
	}
}
