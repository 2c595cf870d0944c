package dto

import "time"

// AdjustBalanceRequest credits or deducts a user's balance by Telegram ID
type AdjustBalanceRequest struct {
	TelegramID  int64  `json:"telegram_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// BalanceResponse returns the user's current balance
type BalanceResponse struct {
	TelegramID   int64 `json:"telegram_id"`
	BalanceCents int64 `json:"balance_cents"`
}

// TransactionResponse is one ledger entry
type TransactionResponse struct {
	UUID              string    `json:"uuid"`
	Type              string    `json:"type"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
