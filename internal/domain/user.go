package domain

import "time"

type User struct {
	ID           string `json:"id"`       // UUID
	Username     string `json:"username"` // Уникальный логин
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Никогда не отправляем на фронт
	IsActive     bool   `json:"is_active"`
	IsSuperuser  bool   `json:"is_superuser"`

	// Доп. атрибуты аккаунта
	UserTypeID string `json:"user_type_id,omitempty"` // Ссылка на справочник типов
	ImageURL   string `json:"image_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Мягкое удаление: запись остается в базе, но скрыта из всех выборок
	IsDeleted bool `json:"-"`
}

// UserCreate — входные данные на регистрацию
type UserCreate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate — частичное обновление: nil-поля не трогаем
type UserUpdate struct {
	Email      *string `json:"email,omitempty"`
	Password   *string `json:"password,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
	UserTypeID *string `json:"user_type_id,omitempty"`
}

// UserType — запись справочника типов аккаунтов (admin, customer и т.п.)
type UserType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
