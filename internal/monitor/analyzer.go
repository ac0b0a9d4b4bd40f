package monitor

/*
Analyzer — оффлайн-агрегация по историческому окну событий. Все операции —
чистые функции (окно, параметры) → агрегат: ничего не мутируют, безопасно
перезапускаются и при неизменном окне дают бит-в-бит одинаковый результат.
Детеминированность достигается явной сортировкой с лексикографическим
разрешением ничьих.

Перцентили считаются методом nearest-rank по отсортированным длительностям:
P(p) = значение с индексом ceil(p/100 * N) - 1. Без интерполяции — на малых
выборках интерполированные значения вводят оператора в заблуждение,
показывая латентность, которой не было ни у одного реального запроса.
*/

import (
	"math"
	"sort"
	"time"

	"github.com/xela07ax/userhub/internal/domain"
	"github.com/xela07ax/userhub/internal/obs"
)

// Window — границы анализируемого окна
type Window struct {
	Start time.Time
	End   time.Time
}

// ErrorSummary группирует ERROR/CRITICAL по сигнатуре (модуль + сообщение),
// ранжируя по убыванию частоты.
func ErrorSummary(events []obs.Event, w Window, topN int) domain.ErrorSummary {
	type key struct{ module, message string }
	groups := make(map[key]*domain.ErrorSignature)
	total := 0

	for _, e := range events {
		if !e.Level.AtLeast(obs.LevelError) {
			continue
		}
		total++
		k := key{e.Module, e.Message}
		g, ok := groups[k]
		if !ok {
			groups[k] = &domain.ErrorSignature{
				Module:    e.Module,
				Message:   e.Message,
				Count:     1,
				FirstSeen: e.Timestamp,
				LastSeen:  e.Timestamp,
			}
			continue
		}
		g.Count++
		if e.Timestamp.Before(g.FirstSeen) {
			g.FirstSeen = e.Timestamp
		}
		if e.Timestamp.After(g.LastSeen) {
			g.LastSeen = e.Timestamp
		}
	}

	top := make([]domain.ErrorSignature, 0, len(groups))
	for _, g := range groups {
		top = append(top, *g)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		if top[i].Module != top[j].Module {
			return top[i].Module < top[j].Module
		}
		return top[i].Message < top[j].Message
	})
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}

	return domain.ErrorSummary{
		WindowStart: w.Start,
		WindowEnd:   w.End,
		TotalErrors: total,
		TopErrors:   top,
	}
}

// PerformanceSummary считает p50/p95/p99 по каждому маршруту и помечает
// маршруты, у которых p95 выше порога.
func PerformanceSummary(events []obs.Event, w Window, p95ThresholdMS int64) domain.PerformanceSummary {
	byRoute := make(map[string][]int64)
	total := 0

	for _, e := range events {
		if e.Category != obs.CategoryAPIPerformance {
			continue
		}
		total++
		byRoute[e.Path] = append(byRoute[e.Path], e.DurationMS)
	}

	routes := make([]domain.RouteStats, 0, len(byRoute))
	for route, durations := range byRoute {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

		var sum int64
		for _, d := range durations {
			sum += d
		}

		st := domain.RouteStats{
			Route:    route,
			Requests: len(durations),
			AvgMS:    float64(sum) / float64(len(durations)),
			MaxMS:    durations[len(durations)-1],
			P50MS:    nearestRank(durations, 50),
			P95MS:    nearestRank(durations, 95),
			P99MS:    nearestRank(durations, 99),
		}
		st.Degraded = p95ThresholdMS > 0 && st.P95MS > p95ThresholdMS
		routes = append(routes, st)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Route < routes[j].Route })

	return domain.PerformanceSummary{
		WindowStart:   w.Start,
		WindowEnd:     w.End,
		TotalRequests: total,
		Routes:        routes,
	}
}

// SecuritySummary считает отказы аутентификации и подозрительные запросы
// по каждому адресу клиента; адреса сверх burstThreshold помечаются.
func SecuritySummary(events []obs.Event, w Window, burstThreshold int) domain.SecuritySummary {
	byIP := make(map[string]*domain.ClientSecurityStats)
	total := 0

	for _, e := range events {
		if e.Category != obs.CategorySecurity {
			continue
		}
		total++
		st, ok := byIP[e.ClientIP]
		if !ok {
			st = &domain.ClientSecurityStats{ClientIP: e.ClientIP}
			byIP[e.ClientIP] = st
		}
		switch e.SecurityKind {
		case obs.SecurityAuthFailure:
			st.AuthFailures++
		default:
			st.Suspicious++
		}
	}

	clients := make([]domain.ClientSecurityStats, 0, len(byIP))
	for _, st := range byIP {
		st.Flagged = burstThreshold > 0 && st.AuthFailures > burstThreshold
		clients = append(clients, *st)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].AuthFailures != clients[j].AuthFailures {
			return clients[i].AuthFailures > clients[j].AuthFailures
		}
		return clients[i].ClientIP < clients[j].ClientIP
	})

	return domain.SecuritySummary{
		WindowStart: w.Start,
		WindowEnd:   w.End,
		TotalEvents: total,
		Clients:     clients,
	}
}

// UserActivity группирует запросы по аутентифицированным пользователям
func UserActivity(events []obs.Event, w Window, topN int) domain.UserActivitySummary {
	byUser := make(map[string]*domain.UserActivityEntry)

	for _, e := range events {
		if e.UserID == "" || e.Category != obs.CategoryAPIPerformance {
			continue
		}
		entry, ok := byUser[e.UserID]
		if !ok {
			byUser[e.UserID] = &domain.UserActivityEntry{
				UserID:     e.UserID,
				Requests:   1,
				LastActive: e.Timestamp,
			}
			continue
		}
		entry.Requests++
		if e.Timestamp.After(entry.LastActive) {
			entry.LastActive = e.Timestamp
		}
	}

	users := make([]domain.UserActivityEntry, 0, len(byUser))
	for _, entry := range byUser {
		users = append(users, *entry)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Requests != users[j].Requests {
			return users[i].Requests > users[j].Requests
		}
		return users[i].UserID < users[j].UserID
	})
	if topN > 0 && len(users) > topN {
		users = users[:topN]
	}

	return domain.UserActivitySummary{
		WindowStart: w.Start,
		WindowEnd:   w.End,
		UniqueUsers: len(byUser),
		Users:       users,
	}
}

// nearestRank возвращает p-й перцентиль отсортированного среза
func nearestRank(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
