package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Valid проверяет, что роль известна
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor
}

// Profile профиль пользователя. ID совпадает с uid провайдера аутентификации.
type Profile struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	DisplayName    string    `json:"display_name"`
	PhotoURL       string    `json:"photo_url"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // куда слать уведомления
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsTutor проверяет роль репетитора
func (p *Profile) IsTutor() bool {
	return p.Role == RoleTutor
}
