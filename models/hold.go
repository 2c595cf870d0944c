package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hold is a claim by one user on one phone number. A hold starts temporary
// (free, reclaimable) and is promoted to permanent exactly once, paired with
// a billing debit. The unique index on PhoneNumberID is the inventory
// mutual-exclusion constraint: no two holds of any kind may reference the
// same number, so racing allocators cannot both claim it.
type Hold struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_holds_uuid" json:"uuid"`

	UserID        uint   `gorm:"not null;index:idx_holds_user_id" json:"user_id"`
	PhoneNumberID uint   `gorm:"not null;uniqueIndex:uk_holds_phone_number_id" json:"phone_number_id"`
	RangeID       string `gorm:"size:12;not null;index:idx_holds_range_id" json:"range_id"`

	// Number is the dialable value, denormalized so a hold stays renderable
	// without a join against the inventory.
	Number string `gorm:"size:20;not null" json:"number"`

	HoldStartTime time.Time  `gorm:"not null" json:"hold_start_time"`
	FirstPollTime *time.Time `gorm:"index:idx_holds_first_poll_time" json:"first_poll_time,omitempty"`
	IsPermanent   bool       `gorm:"not null;default:false;index:idx_holds_is_permanent" json:"is_permanent"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	PhoneNumber PhoneNumber `gorm:"foreignKey:PhoneNumberID;constraint:OnDelete:CASCADE" json:"phone_number,omitempty"`
}

func (Hold) TableName() string {
	return "holds"
}

// BeforeCreate ensures UUID is set
func (h *Hold) BeforeCreate(tx *gorm.DB) error {
	if h.UUID == uuid.Nil {
		h.UUID = uuid.New()
	}
	return nil
}

// IsExpirable reports whether the sweeper may reclaim this hold once the
// grace period has elapsed. Permanent holds and holds that were never
// polled do not expire.
func (h *Hold) IsExpirable() bool {
	return !h.IsPermanent && h.FirstPollTime != nil
}

// HoldFilter represents filter criteria for hold queries
type HoldFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	UserID        *uint
	PhoneNumberID *uint
	RangeID       *string
	Number        *string
	IsPermanent   *bool
	PolledBefore  *time.Time
}
