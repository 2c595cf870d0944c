package models

import (
	"time"
)

// Access log actions recorded by the flows
const (
	AccessActionStart          = "start"
	AccessActionViewRanges     = "view_ranges"
	AccessActionAllocate       = "allocate_numbers"
	AccessActionPollSMS        = "poll_sms"
	AccessActionSMSBilled      = "sms_billed"
	AccessActionAdminSetPrice  = "admin_set_price"
	AccessActionAdminCredit    = "admin_credit"
	AccessActionAdminDeduct    = "admin_deduct"
	AccessActionAdminRelease   = "admin_release_holds"
	AccessActionAdminImport    = "admin_import_numbers"
	AccessActionAdminDelete    = "admin_delete_range"
	AccessActionAdminPromote   = "admin_promote"
	AccessActionAdminDemote    = "admin_demote"
	AccessActionAdminBanUser   = "admin_ban_user"
	AccessActionAdminUnbanUser = "admin_unban_user"
)

// AccessLog records one user-facing action for auditing
type AccessLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_access_logs_user_id" json:"user_id"`
	Action    string    `gorm:"size:255;not null" json:"action"`
	Timestamp time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_access_logs_timestamp" json:"timestamp"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}

// AccessLogFilter represents filter criteria for access log queries
type AccessLogFilter struct {
	ID     *uint
	UserID *uint
	Action *string
	After  *time.Time
	Before *time.Time
}
