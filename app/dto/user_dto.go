package dto

import "time"

// RegisterUserRequest registers (or refreshes) a Telegram user
type RegisterUserRequest struct {
	TelegramID int64   `json:"telegram_id" validate:"required"`
	Username   *string `json:"username,omitempty" validate:"omitempty,max=255"`
}

// UserResponse is the public view of a user row
type UserResponse struct {
	ID               uint      `json:"id"`
	UUID             string    `json:"uuid"`
	TelegramID       int64     `json:"telegram_id"`
	Username         *string   `json:"username,omitempty"`
	BalanceCents     int64     `json:"balance_cents"`
	TotalSpentCents  int64     `json:"total_spent_cents"`
	TotalSMSReceived int64     `json:"total_sms_received"`
	IsAdmin          bool      `json:"is_admin"`
	IsBanned         bool      `json:"is_banned"`
	CreatedAt        time.Time `json:"created_at"`
}
