package handler

import (
	"net"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/domain"
	"golang.org/x/time/rate"
)

type AuthHandler struct {
	service *service.AuthService

	// Rate limiting по адресу клиента — заслон от перебора паролей
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewAuthHandler(s *service.AuthService, rps float64, burst int) *AuthHandler {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &AuthHandler{
		service:  s,
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (h *AuthHandler) limiter(ip string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[ip]
	if !ok {
		l = rate.NewLimiter(h.rps, h.burst)
		h.limiters[ip] = l
	}
	return l
}

// Login обменивает логин/пароль на подписанный токен.
// POST /v1/auth/token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.limiter(ip).Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp, err := h.service.GenerateToken(r.Context(), req.Username, req.Password, r.UserAgent(), ip)
	if err != nil {
		// не уточняем, что именно неверно (логин или пароль) для защиты от перебора
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func clientIP(r *http.Request) string {
	// chi middleware.RealIP уже переписал RemoteAddr по X-Forwarded-For
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
