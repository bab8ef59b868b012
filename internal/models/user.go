package models

import "time"

type User struct {
	ID           int     `json:"id" db:"id"`
	Username     *string `json:"username,omitempty" db:"username"`
	DisplayName  string  `json:"display_name" db:"display_name"`
	Email        *string `json:"email,omitempty" db:"email"`
	Phone        *string `json:"phone,omitempty" db:"phone"`
	BotIdentity  *string `json:"bot_identity,omitempty" db:"bot_identity"` // Telegram chat id
	PasswordHash *string `json:"-" db:"password_hash"`

	RefreshToken     *string    `json:"-" db:"refresh_token"`
	RefreshExpiresAt *time.Time `json:"-" db:"refresh_expires_at"`
	RefreshRevoked   bool       `json:"-" db:"refresh_revoked"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IdentityKind names the column a channel identity is matched against.
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityPhone IdentityKind = "phone"
	IdentityBot   IdentityKind = "bot_identity"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
