package obs

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Заголовок, через который клиент может сопоставить свой запрос
// с серверными логами
const RequestIDHeader = "X-Request-ID"

// Паттерны, по которым запрос помечается как подозрительный:
// SQL-инъекции, XSS, обход путей, известные сигнатуры сканеров
var suspiciousPatterns = []string{
	"union select", "drop table", "insert into", "<script>",
	"javascript:", "onload=", "onerror=",
	"../", "etc/passwd", "cmd.exe", "powershell",
}

const maxDeclaredBodySize = 10 * 1024 * 1024 // 10MB

// Interceptor единообразно оборачивает каждый входящий запрос:
// корреляционный ID, замер длительности, событие api_performance и,
// при необходимости, отдельное событие security. Для бизнес-логики
// он невидим — ответ не модифицируется, только наблюдается.
type Interceptor struct {
	pub     Publisher
	metrics *Metrics
	source  string
}

func NewInterceptor(pub Publisher, metrics *Metrics, source string) *Interceptor {
	return &Interceptor{pub: pub, metrics: metrics, source: source}
}

func (i *Interceptor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 1. Пытаемся достать ID из заголовка (если пришел от прокси/клиента)
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = NewRequestID()
		}

		// 2. Кладем в контекст и сразу в ответ, чтобы клиент знал ID своего запроса
		ctx := WithRequestID(r.Context(), requestID)
		ctx = WithUserTracking(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		// 3. Оборачиваем writer, чтобы увидеть статус, не трогая ответ
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// RemoteAddr приходит как ip:port; порт эфемерный и для
		// группировки событий по адресу только мешает
		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = host
		}
		userAgent := r.UserAgent()
		method := r.Method
		path := r.URL.Path

		// 4. Наблюдение выполняется всегда — и при успехе, и при панике.
		// Паника пробрасывается дальше нетронутой.
		defer func() {
			rec := recover()

			duration := time.Since(start)
			status := ww.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			}
			if status == 0 {
				status = http.StatusOK
			}

			i.metrics.TotalRequests.WithLabelValues(method, path).Inc()
			i.metrics.RequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).
				Observe(duration.Seconds())

			e := Event{
				Timestamp:  time.Now().UTC(),
				Level:      levelForStatus(status),
				Source:     i.source,
				Message:    fmt.Sprintf("%s %s", method, path),
				RequestID:  requestID,
				DurationMS: duration.Milliseconds(),
				StatusCode: status,
				ClientIP:   clientIP,
				UserAgent:  userAgent,
				UserID:     UserIDFrom(ctx),
				Method:     method,
				Path:       path,
				Category:   CategoryAPIPerformance,
			}
			e.Module, e.Function, e.Line = callerInfo(1)
			if rec != nil {
				e.Message = fmt.Sprintf("%s %s: panic: %v", method, path, rec)
				e.Level = LevelCritical
			}
			i.pub.Publish(e)

			// 5. Независимая оценка признаков безопасности
			if kind := i.securityKind(r, status); kind != "" {
				sec := e
				sec.Category = CategorySecurity
				sec.Level = LevelWarn
				sec.SecurityKind = kind
				sec.Message = fmt.Sprintf("security: %s (%s %s)", kind, method, path)
				i.pub.Publish(sec)
			}

			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

// securityKind возвращает тип сигнала безопасности или пустую строку
func (i *Interceptor) securityKind(r *http.Request, status int) string {
	if status == http.StatusUnauthorized {
		return SecurityAuthFailure
	}

	// Сравниваем по декодированному URL: %20 и плюсы не должны прятать паттерн
	uri := r.URL.RequestURI()
	if dec, err := url.QueryUnescape(uri); err == nil {
		uri = dec
	}
	urlLower := strings.ToLower(uri)
	for _, p := range suspiciousPatterns {
		if strings.Contains(urlLower, p) {
			return SecuritySuspiciousURL
		}
	}

	if cl := r.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxDeclaredBodySize {
			return SecurityOversizedBody
		}
	}
	return ""
}

func levelForStatus(status int) Level {
	switch {
	case status >= 500:
		return LevelError
	case status >= 400:
		return LevelWarn
	default:
		return LevelInfo
	}
}
