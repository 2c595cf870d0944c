// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/numbay/numbay/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// UserRepository defines operations for Telegram users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetOrCreate(ctx context.Context, telegramID int64, username *string) (*models.User, error)
	// ApplyCredit unconditionally increases the cached balance.
	ApplyCredit(ctx context.Context, userID uint, amountCents int64) error
	// ApplyDebit decreases the cached balance and bumps total_spent, guarded
	// by balance >= amount. Returns false without mutating anything when the
	// guard fails. incrementSMS additionally bumps total_sms_received.
	ApplyDebit(ctx context.Context, userID uint, amountCents int64, incrementSMS bool) (bool, error)
	SetAdmin(ctx context.Context, telegramID int64, isAdmin bool) (bool, error)
	SetBanned(ctx context.Context, telegramID int64, isBanned bool) (bool, error)
}

// SMSRangeRepository defines operations for number ranges
type SMSRangeRepository interface {
	ByID(ctx context.Context, id string) (*models.SMSRange, error)
	ByName(ctx context.Context, name string) (*models.SMSRange, error)
	Upsert(ctx context.Context, r *models.SMSRange) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.SMSRange, error)
	ListInventory(ctx context.Context) ([]*RangeInventory, error)
	Count(ctx context.Context) (int64, error)
}

// PhoneNumberRepository defines operations for range inventory
type PhoneNumberRepository interface {
	Repository[models.PhoneNumber, models.PhoneNumberFilter]
	ByNumbers(ctx context.Context, numbers []string) ([]*models.PhoneNumber, error)
	// AvailableByRange returns the range's numbers not referenced by any
	// hold, temporary or permanent.
	AvailableByRange(ctx context.Context, rangeID string) ([]*models.PhoneNumber, error)
	CountAvailableByRange(ctx context.Context, rangeID string) (int64, error)
	CountByRange(ctx context.Context, rangeID string) (int64, error)
}

// PriceRuleRepository defines operations for range prices
type PriceRuleRepository interface {
	ByRangeID(ctx context.Context, rangeID string) (*models.PriceRule, error)
	Upsert(ctx context.Context, rule *models.PriceRule) error
	DeleteByRangeID(ctx context.Context, rangeID string) error
}

// HoldRepository defines operations for number holds
type HoldRepository interface {
	Repository[models.Hold, models.HoldFilter]
	ByUserAndNumber(ctx context.Context, userID uint, number string) (*models.Hold, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Hold, error)
	DeleteTemporaryByUser(ctx context.Context, userID uint) (int64, error)
	DeleteAllTemporary(ctx context.Context) (int64, error)
	// DeleteExpired removes temporary holds whose first poll happened
	// before the cutoff. Never-polled and permanent holds are untouched.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	// SetFirstPollTime stamps the hold at most once; a second call is a no-op.
	SetFirstPollTime(ctx context.Context, holdID uint, t time.Time) error
	// PromoteIfTemporary flips is_permanent false -> true and reports
	// whether this call performed the flip.
	PromoteIfTemporary(ctx context.Context, holdID uint) (bool, error)
	CountTemporaryByRange(ctx context.Context, rangeID string) (int64, error)
	CountByKind(ctx context.Context) (temporary, permanent int64, err error)
}

// TransactionRepository defines operations for the append-only ledger
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Transaction, error)
	// SumByUser returns the signed sum of a user's ledger entries, which by
	// invariant equals the user's cached balance.
	SumByUser(ctx context.Context, userID uint) (int64, error)
	// SumChargeRevenue returns total sms_charge magnitude across all users.
	SumChargeRevenue(ctx context.Context) (int64, error)
}

// AccessLogRepository defines operations for the access log
type AccessLogRepository interface {
	Repository[models.AccessLog, models.AccessLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AccessLog, error)
}

// RangeInventory is a per-range stock summary for listings and stats
type RangeInventory struct {
	RangeID      string `json:"range_id"`
	Name         string `json:"name"`
	TotalNumbers int64  `json:"total_numbers"`
	Available    int64  `json:"available"`
}
