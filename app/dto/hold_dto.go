package dto

import "time"

// AllocateHoldsRequest reserves a fresh batch of numbers for a user
type AllocateHoldsRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required"`
	RangeID    string `json:"range_id" validate:"required,len=12,hexadecimal"`
	BatchSize  int    `json:"batch_size" validate:"required,gte=1,lte=100"`
}

// HoldResponse is the public view of a hold row
type HoldResponse struct {
	ID            uint       `json:"id"`
	UUID          string     `json:"uuid"`
	RangeID       string     `json:"range_id"`
	Number        string     `json:"number"`
	HoldStartTime time.Time  `json:"hold_start_time"`
	FirstPollTime *time.Time `json:"first_poll_time,omitempty"`
	IsPermanent   bool       `json:"is_permanent"`
}

// AllocateHoldsResponse returns the allocated batch
type AllocateHoldsResponse struct {
	RangeID string         `json:"range_id"`
	Holds   []HoldResponse `json:"holds"`
}

// BillingResultResponse reports the outcome of an SMS billing attempt
type BillingResultResponse struct {
	HoldID          uint   `json:"hold_id"`
	Number          string `json:"number"`
	AlreadyBilled   bool   `json:"already_billed"`
	PriceCents      int64  `json:"price_cents"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}

// SweepResponse reports how many temporary holds a sweep released
type SweepResponse struct {
	Released int64 `json:"released"`
}
