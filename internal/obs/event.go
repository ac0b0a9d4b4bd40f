package obs

import (
	"errors"
	"path/filepath"
	"runtime"
	"time"
)

type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarn     Level = "WARN"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// severityRank задает порядок уровней для фильтрации по минимальному уровню
var severityRank = map[Level]int{
	LevelDebug:    0,
	LevelInfo:     1,
	LevelWarn:     2,
	LevelError:    3,
	LevelCritical: 4,
}

// AtLeast — true, если уровень l не ниже min
func (l Level) AtLeast(min Level) bool {
	return severityRank[l] >= severityRank[min]
}

func (l Level) Valid() bool {
	_, ok := severityRank[l]
	return ok
}

// Категории событий. Analyzer и Alert Evaluator различают события именно по ним.
const (
	CategoryAPIPerformance = "api_performance"
	CategorySecurity       = "security"
	CategoryError          = "error"
	CategoryApp            = "application"
)

// Типы событий безопасности (подробности всплеска — в SecurityKind)
const (
	SecurityAuthFailure    = "authentication_failure"
	SecuritySuspiciousURL  = "suspicious_request_pattern"
	SecurityOversizedBody  = "large_request_body"
)

// Event — один неизменяемый факт: завершение запроса, ошибка, сигнал безопасности.
// Создается ровно один раз и после публикации не модифицируется.
type Event struct {
	Timestamp time.Time `json:"timestamp"` // UTC, миллисекунды
	Level     Level     `json:"level"`
	Source    string    `json:"source"`  // Логическое имя подсистемы
	Message   string    `json:"message"` // Свободный текст

	// Место в коде (best-effort, только для диагностики)
	Module   string `json:"module,omitempty"`
	Function string `json:"function,omitempty"`
	Line     int    `json:"line,omitempty"`

	// Сквозная корреляция запроса
	RequestID string `json:"request_id"`

	// Заполняются только по завершении запроса
	DurationMS int64 `json:"duration_ms,omitempty"`
	StatusCode int   `json:"status_code,omitempty"`

	// Контекст клиента
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	UserID    string `json:"user_id,omitempty"`

	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`

	Category     string `json:"category"`
	SecurityKind string `json:"security_kind,omitempty"` // Только для category=security
}

var (
	ErrMissingRequestID = errors.New("event: missing request id")
	ErrMissingCategory  = errors.New("event: missing category")
	ErrInvalidLevel     = errors.New("event: invalid level")
	ErrNegativeDuration = errors.New("event: negative duration")
)

// Validate проверяет инварианты события. Событие, не прошедшее проверку,
// не доставляется ни в один sink даже частично — оно отбрасывается и считается.
func (e Event) Validate() error {
	if e.RequestID == "" {
		return ErrMissingRequestID
	}
	if e.Category == "" {
		return ErrMissingCategory
	}
	if !e.Level.Valid() {
		return ErrInvalidLevel
	}
	if e.DurationMS < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// callerInfo снимает координаты вызывающего кода для поля Module/Function/Line.
// skip отсчитывается от вызова callerInfo.
func callerInfo(skip int) (module, function string, line int) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "", "", 0
	}
	module = filepath.Base(file)
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = filepath.Base(fn.Name())
	}
	return module, function, line
}
