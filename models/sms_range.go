package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SMSRange is a named pool of phone numbers sharing one price. Its primary
// key is derived deterministically from the range name so that re-importing
// the same named range merges into the existing row instead of duplicating.
type SMSRange struct {
	ID   string `gorm:"primaryKey;size:12" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex:uk_sms_ranges_name" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	PhoneNumbers []PhoneNumber `gorm:"foreignKey:RangeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SMSRange) TableName() string {
	return "sms_ranges"
}

// RangeIDFromName derives the stable range identifier from a range name.
// Names are compared case-insensitively and ignoring surrounding whitespace.
func RangeIDFromName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:12]
}

// SMSRangeFilter represents filter criteria for range queries
type SMSRangeFilter struct {
	ID            *string
	Name          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
