package monitor

import (
	"sort"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/obs"
)

const reportTopN = 10

// DailyReport собирает сводку за календарные сутки: распределение по уровням,
// самые медленные маршруты, самые частые ошибки, безопасность и активность
// пользователей. Пересчитывается при каждом запросе, ничего не кэширует.
func DailyReport(events []obs.Event, day time.Time, p95ThresholdMS int64, now time.Time) domain.DailyReport {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	w := Window{Start: dayStart, End: dayEnd}

	levelCounts := make(map[string]int)
	inDay := make([]obs.Event, 0, len(events))
	for _, e := range events {
		if e.Timestamp.Before(dayStart) || !e.Timestamp.Before(dayEnd) {
			continue
		}
		inDay = append(inDay, e)
		levelCounts[string(e.Level)]++
	}

	perf := PerformanceSummary(inDay, w, p95ThresholdMS)
	slowest := append([]domain.RouteStats(nil), perf.Routes...)
	sort.Slice(slowest, func(i, j int) bool {
		if slowest[i].P95MS != slowest[j].P95MS {
			return slowest[i].P95MS > slowest[j].P95MS
		}
		return slowest[i].Route < slowest[j].Route
	})
	if len(slowest) > reportTopN {
		slowest = slowest[:reportTopN]
	}

	errs := ErrorSummary(inDay, w, reportTopN)

	return domain.DailyReport{
		ReportDate:    dayStart.Format("2006-01-02"),
		GeneratedAt:   now,
		LevelCounts:   levelCounts,
		SlowestRoutes: slowest,
		TopErrors:     errs.TopErrors,
		Security:      SecuritySummary(inDay, w, 0),
		UserActivity:  UserActivity(inDay, w, reportTopN),
	}
}
