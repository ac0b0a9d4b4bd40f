package domain

import "time"

// --- Агрегаты анализатора логов (read-only представления, не сущности) ---

// ErrorSignature — группа однотипных ошибок (модуль + текст сообщения)
type ErrorSignature struct {
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type ErrorSummary struct {
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	TotalErrors int              `json:"total_errors"`
	TopErrors   []ErrorSignature `json:"top_errors"` // По убыванию частоты
}

// RouteStats — латентность одного маршрута за окно
type RouteStats struct {
	Route    string  `json:"route"`
	Requests int     `json:"requests"`
	AvgMS    float64 `json:"avg_ms"`
	MaxMS    int64   `json:"max_ms"`
	P50MS    int64   `json:"p50_ms"`
	P95MS    int64   `json:"p95_ms"`
	P99MS    int64   `json:"p99_ms"`
	Degraded bool    `json:"degraded"` // p95 выше настроенного порога
}

type PerformanceSummary struct {
	WindowStart   time.Time    `json:"window_start"`
	WindowEnd     time.Time    `json:"window_end"`
	TotalRequests int          `json:"total_requests"`
	Routes        []RouteStats `json:"routes"`
}

// ClientSecurityStats — активность одного адреса по событиям безопасности
type ClientSecurityStats struct {
	ClientIP     string `json:"client_ip"`
	AuthFailures int    `json:"auth_failures"`
	Suspicious   int    `json:"suspicious"` // Сканеры, инъекции и прочие паттерны
	Flagged      bool   `json:"flagged"`    // Превышен порог всплеска
}

type SecuritySummary struct {
	WindowStart time.Time             `json:"window_start"`
	WindowEnd   time.Time             `json:"window_end"`
	TotalEvents int                   `json:"total_events"`
	Clients     []ClientSecurityStats `json:"clients"`
}

// UserActivityEntry — сводка по одному авторизованному пользователю
type UserActivityEntry struct {
	UserID     string    `json:"user_id"`
	Requests   int       `json:"requests"`
	LastActive time.Time `json:"last_active"`
}

type UserActivitySummary struct {
	WindowStart time.Time           `json:"window_start"`
	WindowEnd   time.Time           `json:"window_end"`
	UniqueUsers int                 `json:"unique_users"`
	Users       []UserActivityEntry `json:"users"`
}

// --- Алерты ---

type AlertKind string

const (
	AlertHighErrorRate      AlertKind = "high_error_rate"
	AlertFailedAuthBurst    AlertKind = "failed_auth_burst"
	AlertLatencyDegradation AlertKind = "latency_degradation"
	AlertSecurityAnomaly    AlertKind = "security_anomaly"
)

// Alert — производное состояние, пересчитывается по окну при каждом запросе.
// Никогда не хранится отдельно, поэтому не может "разъехаться" с логами.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Count       int       `json:"count"`     // Сработавшее значение метрики
	Threshold   int       `json:"threshold"` // Порог, который превышен
	Subject     string    `json:"subject,omitempty"` // IP или маршрут, если алерт адресный
}

// --- Здоровье и суточный отчет ---

type HealthStatus struct {
	Status    string    `json:"status"` // healthy | warning | critical
	Timestamp time.Time `json:"timestamp"`
	Alerts    []Alert   `json:"alerts"`
}

type DailyReport struct {
	ReportDate    string              `json:"report_date"` // YYYY-MM-DD
	GeneratedAt   time.Time           `json:"generated_at"`
	LevelCounts   map[string]int      `json:"level_counts"`
	SlowestRoutes []RouteStats        `json:"slowest_routes"` // top-N по p95
	TopErrors     []ErrorSignature    `json:"top_errors"`
	Security      SecuritySummary     `json:"security"`
	UserActivity  UserActivitySummary `json:"user_activity"`
}
