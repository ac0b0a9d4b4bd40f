package monitor

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/xela07ax/userhub/internal/obs"
)

var testBase = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func perfEvent(path string, durationMS int64, offset time.Duration) obs.Event {
	return obs.Event{
		Timestamp:  testBase.Add(offset),
		Level:      obs.LevelInfo,
		RequestID:  "r",
		DurationMS: durationMS,
		Method:     "GET",
		Path:       path,
		Category:   obs.CategoryAPIPerformance,
	}
}

func errEvent(module, message string, offset time.Duration) obs.Event {
	return obs.Event{
		Timestamp: testBase.Add(offset),
		Level:     obs.LevelError,
		RequestID: "r",
		Module:    module,
		Message:   message,
		Category:  obs.CategoryError,
	}
}

func secEvent(ip, kind string, offset time.Duration) obs.Event {
	return obs.Event{
		Timestamp:    testBase.Add(offset),
		Level:        obs.LevelWarn,
		RequestID:    "r",
		ClientIP:     ip,
		Category:     obs.CategorySecurity,
		SecurityKind: kind,
	}
}

func TestNearestRankPercentiles(t *testing.T) {
	durations := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	cases := []struct {
		p    float64
		want int64
	}{
		{50, 50},  // ceil(0.5*10)=5 → 5-й элемент
		{95, 100}, // ceil(0.95*10)=10
		{99, 100},
	}
	for _, c := range cases {
		if got := nearestRank(durations, c.p); got != c.want {
			t.Errorf("nearestRank(%v) = %d, want %d", c.p, got, c.want)
		}
	}

	// Одно значение: все перцентили совпадают с ним
	single := []int64{42}
	for _, p := range []float64{50, 95, 99} {
		if got := nearestRank(single, p); got != 42 {
			t.Errorf("single-element p%v = %d", p, got)
		}
	}

	if got := nearestRank(nil, 95); got != 0 {
		t.Errorf("empty slice p95 = %d, want 0", got)
	}
}

func TestPerformanceSummary(t *testing.T) {
	var events []obs.Event
	// 20 запросов на /v1/users: 100..2000ms
	for i := 1; i <= 20; i++ {
		events = append(events, perfEvent("/v1/users", int64(i*100), time.Duration(i)*time.Second))
	}
	// Один быстрый маршрут
	events = append(events, perfEvent("/health", 5, time.Minute))

	w := Window{Start: testBase, End: testBase.Add(time.Hour)}
	sum := PerformanceSummary(events, w, 1500)

	if sum.TotalRequests != 21 {
		t.Fatalf("total = %d", sum.TotalRequests)
	}
	if len(sum.Routes) != 2 {
		t.Fatalf("routes = %d", len(sum.Routes))
	}

	// Маршруты отсортированы по имени
	if sum.Routes[0].Route != "/health" || sum.Routes[1].Route != "/v1/users" {
		t.Fatalf("route order: %s, %s", sum.Routes[0].Route, sum.Routes[1].Route)
	}

	users := sum.Routes[1]
	if users.P50MS != 1000 { // ceil(0.5*20)=10 → 1000ms
		t.Errorf("p50 = %d", users.P50MS)
	}
	if users.P95MS != 1900 { // ceil(0.95*20)=19 → 1900ms
		t.Errorf("p95 = %d", users.P95MS)
	}
	if users.MaxMS != 2000 {
		t.Errorf("max = %d", users.MaxMS)
	}
	if !users.Degraded {
		t.Error("route with p95=1900 over threshold 1500 not degraded")
	}
	if sum.Routes[0].Degraded {
		t.Error("/health wrongly degraded")
	}
}

func TestErrorSummaryGroupsAndRanks(t *testing.T) {
	events := []obs.Event{
		errEvent("db", "connection refused", time.Minute),
		errEvent("db", "connection refused", 2*time.Minute),
		errEvent("db", "connection refused", 3*time.Minute),
		errEvent("auth", "token expired", time.Minute),
		// INFO не попадает в сводку ошибок
		perfEvent("/v1/users", 10, time.Minute),
	}

	w := Window{Start: testBase, End: testBase.Add(time.Hour)}
	sum := ErrorSummary(events, w, 10)

	if sum.TotalErrors != 4 {
		t.Fatalf("total errors = %d", sum.TotalErrors)
	}
	if len(sum.TopErrors) != 2 {
		t.Fatalf("groups = %d", len(sum.TopErrors))
	}

	top := sum.TopErrors[0]
	if top.Module != "db" || top.Count != 3 {
		t.Fatalf("top group = %+v", top)
	}
	if !top.FirstSeen.Equal(testBase.Add(time.Minute)) || !top.LastSeen.Equal(testBase.Add(3*time.Minute)) {
		t.Fatalf("first/last seen = %v / %v", top.FirstSeen, top.LastSeen)
	}
}

func TestErrorSummaryTopNTruncation(t *testing.T) {
	var events []obs.Event
	for i := 0; i < 7; i++ {
		events = append(events, errEvent(fmt.Sprintf("mod-%d", i), "boom", time.Minute))
	}

	sum := ErrorSummary(events, Window{Start: testBase, End: testBase.Add(time.Hour)}, 3)
	if len(sum.TopErrors) != 3 {
		t.Fatalf("topN not applied: %d", len(sum.TopErrors))
	}
	if sum.TotalErrors != 7 {
		t.Fatalf("total must count all errors: %d", sum.TotalErrors)
	}
}

func TestSecuritySummaryFlagsBurst(t *testing.T) {
	var events []obs.Event
	for i := 0; i < 6; i++ {
		events = append(events, secEvent("10.0.0.1", obs.SecurityAuthFailure, time.Duration(i)*time.Minute))
	}
	events = append(events,
		secEvent("10.0.0.2", obs.SecurityAuthFailure, time.Minute),
		secEvent("10.0.0.2", obs.SecuritySuspiciousURL, 2*time.Minute),
	)

	w := Window{Start: testBase, End: testBase.Add(time.Hour)}
	sum := SecuritySummary(events, w, 5)

	if sum.TotalEvents != 8 {
		t.Fatalf("total = %d", sum.TotalEvents)
	}

	// Сортировка по числу отказов: злоумышленник первым
	lead := sum.Clients[0]
	if lead.ClientIP != "10.0.0.1" || lead.AuthFailures != 6 || !lead.Flagged {
		t.Fatalf("lead client = %+v", lead)
	}

	second := sum.Clients[1]
	// Ровно на пороге — не всплеск (строго больше)
	if second.Flagged {
		t.Fatalf("client below threshold flagged: %+v", second)
	}
	if second.Suspicious != 1 {
		t.Fatalf("suspicious count = %d", second.Suspicious)
	}
}

func TestUserActivityRanking(t *testing.T) {
	var events []obs.Event
	for i := 0; i < 5; i++ {
		e := perfEvent("/v1/users/me", 10, time.Duration(i)*time.Minute)
		e.UserID = "heavy"
		events = append(events, e)
	}
	light := perfEvent("/v1/users/me", 10, time.Minute)
	light.UserID = "light"
	events = append(events, light)
	// Аноним не учитывается
	events = append(events, perfEvent("/health", 1, time.Minute))

	w := Window{Start: testBase, End: testBase.Add(time.Hour)}
	sum := UserActivity(events, w, 10)

	if sum.UniqueUsers != 2 {
		t.Fatalf("unique users = %d", sum.UniqueUsers)
	}
	if sum.Users[0].UserID != "heavy" || sum.Users[0].Requests != 5 {
		t.Fatalf("top user = %+v", sum.Users[0])
	}
	wantLast := testBase.Add(4 * time.Minute)
	if !sum.Users[0].LastActive.Equal(wantLast) {
		t.Fatalf("last active = %v, want %v", sum.Users[0].LastActive, wantLast)
	}
}

func TestAnalyzerDeterministic(t *testing.T) {
	// Один и тот же набор событий должен давать бит-в-бит одинаковый агрегат
	events := []obs.Event{
		errEvent("a", "x", time.Minute),
		errEvent("b", "y", time.Minute),
		perfEvent("/p1", 100, time.Minute),
		perfEvent("/p2", 200, time.Minute),
		secEvent("1.1.1.1", obs.SecurityAuthFailure, time.Minute),
		secEvent("2.2.2.2", obs.SecurityAuthFailure, time.Minute),
	}
	w := Window{Start: testBase, End: testBase.Add(time.Hour)}

	first := PerformanceSummary(events, w, 0)
	errFirst := ErrorSummary(events, w, 10)
	secFirst := SecuritySummary(events, w, 3)

	for i := 0; i < 5; i++ {
		if got := PerformanceSummary(events, w, 0); !reflect.DeepEqual(got, first) {
			t.Fatal("PerformanceSummary is not deterministic")
		}
		if got := ErrorSummary(events, w, 10); !reflect.DeepEqual(got, errFirst) {
			t.Fatal("ErrorSummary is not deterministic")
		}
		if got := SecuritySummary(events, w, 3); !reflect.DeepEqual(got, secFirst) {
			t.Fatal("SecuritySummary is not deterministic")
		}
	}
}

func TestDailyReport(t *testing.T) {
	day := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	events := []obs.Event{
		perfEvent("/v1/users", 100, time.Hour),
		perfEvent("/v1/users", 9000, 2*time.Hour),
		errEvent("db", "deadlock", 3*time.Hour),
		// Событие следующих суток не должно попасть в отчет
		perfEvent("/v1/users", 50, 13*time.Hour), // testBase 12:00 + 13h = 01:00 следующего дня
	}

	report := DailyReport(events, day, 5000, testBase.Add(20*time.Hour))

	if report.ReportDate != "2026-08-29" {
		t.Fatalf("report date = %s", report.ReportDate)
	}
	if report.LevelCounts["INFO"] != 2 || report.LevelCounts["ERROR"] != 1 {
		t.Fatalf("level counts = %v", report.LevelCounts)
	}
	if len(report.SlowestRoutes) != 1 {
		t.Fatalf("routes = %d", len(report.SlowestRoutes))
	}
	if report.SlowestRoutes[0].Requests != 2 {
		t.Fatalf("next-day event leaked into report: %+v", report.SlowestRoutes[0])
	}
	if len(report.TopErrors) != 1 || report.TopErrors[0].Message != "deadlock" {
		t.Fatalf("top errors = %+v", report.TopErrors)
	}
}
