package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType represents the type of ledger transaction
type TransactionType string

const (
	TransactionTypeRecharge    TransactionType = "recharge"     // Balance top-up
	TransactionTypeSMSCharge   TransactionType = "sms_charge"   // Debit paired with a hold promotion
	TransactionTypeAdminAdd    TransactionType = "admin_add"    // Manual admin credit
	TransactionTypeAdminDeduct TransactionType = "admin_deduct" // Manual admin debit
)

// Transaction is an immutable, append-only ledger entry. AmountCents is
// signed: credits positive, debits negative. The sum of a user's entries
// must always equal the user's cached BalanceCents.
type Transaction struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_transactions_uuid" json:"uuid"`

	UserID      uint            `gorm:"not null;index:idx_transactions_user_id" json:"user_id"`
	Type        TransactionType `gorm:"type:varchar(20);not null;index:idx_transactions_type" json:"type"`
	AmountCents int64           `gorm:"not null" json:"amount_cents"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'IRR'" json:"currency"`

	// BalanceAfterCents records the cached balance at commit time, which
	// makes ledger drift detectable without replaying history.
	BalanceAfterCents int64 `gorm:"not null" json:"balance_after_cents"`

	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_transactions_created_at" json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate ensures UUID is set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

// IsCredit reports whether the entry increased the balance
func (t *Transaction) IsCredit() bool {
	return t.AmountCents > 0
}

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UserID        *uint
	Type          *TransactionType
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
