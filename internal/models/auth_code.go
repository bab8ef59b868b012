package models

import "time"

// CodeChannel is the delivery channel a one-time code is bound to.
type CodeChannel string

const (
	ChannelEmail CodeChannel = "email"
	ChannelPhone CodeChannel = "phone"
	ChannelBot   CodeChannel = "bot"
)

// IdentityKind maps a channel to the user column holding that identity.
func (c CodeChannel) IdentityKind() IdentityKind {
	switch c {
	case ChannelPhone:
		return IdentityPhone
	case ChannelBot:
		return IdentityBot
	default:
		return IdentityEmail
	}
}

// AuthCode is a live one-time code. Exactly one channel identity is bound.
type AuthCode struct {
	Code      string
	Channel   CodeChannel
	Identity  string
	ExpiresAt time.Time
}

func (a AuthCode) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

type EmailCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type EmailVerifyRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type SMSCodeRequest struct {
	Phone string `json:"phone" binding:"required,phone"`
}

type SMSVerifyRequest struct {
	Phone string `json:"phone" binding:"omitempty,phone"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// BotCodeRequest carries the Telegram chat id the bot reported on /start.
type BotCodeRequest struct {
	ChatID string `json:"chat_id" binding:"required,numeric"`
}

type BotVerifyRequest struct {
	ChatID string `json:"chat_id" binding:"omitempty,numeric"`
	Code   string `json:"code" binding:"required,len=6,numeric"`
}

// CodeLoginResponse is returned after a successful code verification.
type CodeLoginResponse struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
