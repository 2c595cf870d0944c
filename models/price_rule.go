package models

import (
	"time"
)

// PriceRule holds the one active unit price for a range. There is no price
// history: setting a price for a range that already has one replaces it.
// A range with no rule is priced at the fallback constant.
type PriceRule struct {
	RangeID    string `gorm:"primaryKey;size:12" json:"range_id"`
	PriceCents int64  `gorm:"not null" json:"price_cents"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PriceRule) TableName() string {
	return "price_rules"
}

// PriceRuleFilter represents filter criteria for price rule queries
type PriceRuleFilter struct {
	RangeID *string
}
