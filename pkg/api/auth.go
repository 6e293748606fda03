package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email"`               // email пользователя
	Username string `json:"username"`            // уникальный username
	Password string `json:"password"`            // пароль (передается только по TLS)
	FullName string `json:"full_name,omitempty"` // полное имя (опционально)
}

// RegisterResponse представляет ответ на регистрацию.
// Если аккаунту требуется подтверждение email, сервер не выдает токены
// и выставляет RequiresVerification.
type RegisterResponse struct {
	AccessToken          string       `json:"access_token,omitempty"`
	RefreshToken         string       `json:"refresh_token,omitempty"`
	User                 *UserProfile `json:"user,omitempty"`
	Message              string       `json:"message,omitempty"`
	RequiresVerification bool         `json:"requires_verification,omitempty"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest обменивает внешний identity token на пару токенов
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"` // Google ID token
}

// RefreshRequest обменивает refresh token на новый access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`            // JWT access token
	RefreshToken string       `json:"refresh_token,omitempty"` // пустой при refresh (меняется только access token)
	User         *UserProfile `json:"user,omitempty"`
}

// UserProfile представляет профиль пользователя, как его отдает сервер
type UserProfile struct {
	ID             string    `json:"id"` // UUID пользователя
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsActive       bool      `json:"is_active"`
	IsVerified     bool      `json:"is_verified"`
	IsPremium      bool      `json:"is_premium"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserUpdate содержит частичное обновление профиля (shallow merge).
// nil-поля не меняют текущее значение.
type UserUpdate struct {
	Email          *string `json:"email,omitempty"`
	Username       *string `json:"username,omitempty"`
	FullName       *string `json:"full_name,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	IsPremium      *bool   `json:"is_premium,omitempty"`
	IsVerified     *bool   `json:"is_verified,omitempty"`
}

// Apply применяет частичное обновление к профилю
func (u UserUpdate) Apply(p *UserProfile) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.ProfilePicture != nil {
		p.ProfilePicture = *u.ProfilePicture
	}
	if u.IsPremium != nil {
		p.IsPremium = *u.IsPremium
	}
	if u.IsVerified != nil {
		p.IsVerified = *u.IsVerified
	}
}
