package domain

import "time"

// Session — запись об активном входе пользователя. В базе храним только
// хэш токена: утечка таблицы не дает возможности воспользоваться сессией.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	TokenHash        string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsActive         bool      `json:"is_active"`

	// Метаданные устройства для списка "мои сессии"
	DeviceInfo string `json:"device_info,omitempty"` // User-Agent и т.п.
	IPAddress  string `json:"ip_address,omitempty"`

	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired — сессия просрочена по времени (независимо от is_active)
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
