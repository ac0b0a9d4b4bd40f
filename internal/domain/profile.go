package domain

import "time"

type ProfileVisibility string

const (
	VisibilityPublic  ProfileVisibility = "public"
	VisibilityPrivate ProfileVisibility = "private"
	VisibilityFriends ProfileVisibility = "friends"
)

// Profile — расширенная анкета пользователя (1:1 к users)
type Profile struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Location    string `json:"location,omitempty"`
	Website     string `json:"website,omitempty"`
	Company     string `json:"company,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`

	// Ссылки на соцсети
	LinkedinURL string `json:"linkedin_url,omitempty"`
	TwitterURL  string `json:"twitter_url,omitempty"`
	GithubURL   string `json:"github_url,omitempty"`

	// Приватность: кто видит анкету и контакты
	Visibility ProfileVisibility `json:"visibility"`
	ShowEmail  bool              `json:"show_email"`
	ShowPhone  bool              `json:"show_phone"`

	// Email аккаунта. В profiles не хранится — подставляется сервисом
	// при отдаче публичной анкеты
	Email string `json:"email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate — частичное обновление анкеты
type ProfileUpdate struct {
	FirstName   *string            `json:"first_name,omitempty"`
	LastName    *string            `json:"last_name,omitempty"`
	PhoneNumber *string            `json:"phone_number,omitempty"`
	Bio         *string            `json:"bio,omitempty"`
	AvatarURL   *string            `json:"avatar_url,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Website     *string            `json:"website,omitempty"`
	Company     *string            `json:"company,omitempty"`
	JobTitle    *string            `json:"job_title,omitempty"`
	LinkedinURL *string            `json:"linkedin_url,omitempty"`
	TwitterURL  *string            `json:"twitter_url,omitempty"`
	GithubURL   *string            `json:"github_url,omitempty"`
	Visibility  *ProfileVisibility `json:"visibility,omitempty"`
	ShowEmail   *bool              `json:"show_email,omitempty"`
	ShowPhone   *bool              `json:"show_phone,omitempty"`
}

// PublicView возвращает копию анкеты, очищенную по настройкам приватности.
// Контакты скрываем, если владелец их не открыл.
func (p Profile) PublicView() Profile {
	out := p
	if !p.ShowPhone {
		out.PhoneNumber = ""
	}
	if !p.ShowEmail {
		out.Email = ""
	}
	return out
}
