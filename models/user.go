// Package models contains domain entities and business models for the number-hold and ledger system
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a Telegram user of the storefront. Users are created
// lazily on first interaction and never deleted (audit trail).
//
// BalanceCents is a cached projection of the user's transaction ledger and
// must only be mutated through the ledger flow, never directly.
type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	TelegramID int64   `gorm:"not null;uniqueIndex:uk_users_telegram_id" json:"telegram_id"`
	Username   *string `gorm:"size:255" json:"username,omitempty"`

	// Ledger projections
	BalanceCents     int64 `gorm:"not null;default:0" json:"balance_cents"`
	TotalSpentCents  int64 `gorm:"not null;default:0" json:"total_spent_cents"`
	TotalSMSReceived int64 `gorm:"not null;default:0" json:"total_sms_received"`

	IsAdmin  bool `gorm:"not null;default:false;index:idx_users_is_admin" json:"is_admin"`
	IsBanned bool `gorm:"not null;default:false" json:"is_banned"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_users_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Holds        []Hold        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Transactions []Transaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AccessLogs   []AccessLog   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TelegramID    *int64
	Username      *string
	IsAdmin       *bool
	IsBanned      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
