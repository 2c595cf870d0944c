package models

import (
	"time"
)

// PhoneNumber is one dialable number in a range's inventory. A number
// belongs to exactly one range and the dialable value is globally unique,
// enforced by a uniqueness constraint rather than convention. Rows are
// created by import and never mutated; deletion cascades from the range.
type PhoneNumber struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	RangeID string `gorm:"size:12;not null;index:idx_phone_numbers_range_id" json:"range_id"`
	Number  string `gorm:"size:20;not null;uniqueIndex:uk_phone_numbers_number" json:"number"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// Relations
	Range SMSRange `gorm:"foreignKey:RangeID;constraint:OnDelete:CASCADE" json:"range,omitempty"`
}

func (PhoneNumber) TableName() string {
	return "phone_numbers"
}

// PhoneNumberFilter represents filter criteria for phone number queries
type PhoneNumberFilter struct {
	ID      *uint
	RangeID *string
	Number  *string
}
