package businessflow

import (
	"context"
	"fmt"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// SystemStats is the admin dashboard summary
type SystemStats struct {
	Users              int64 `json:"users"`
	Admins             int64 `json:"admins"`
	Ranges             int64 `json:"ranges"`
	TemporaryHolds     int64 `json:"temporary_holds"`
	PermanentHolds     int64 `json:"permanent_holds"`
	ChargeRevenueCents int64 `json:"charge_revenue_cents"`
}

// AdminFlow wraps the core flows with the manual operations an operator
// performs: pricing, balance adjustments, hold releases, promotion and bans.
// Authorization happens in the layer above; flows only record who acted.
type AdminFlow interface {
	SetPrice(ctx context.Context, rangeID string, priceCents int64) error
	Credit(ctx context.Context, telegramID int64, amountCents int64, description string) (int64, error)
	Deduct(ctx context.Context, telegramID int64, amountCents int64, description string) (int64, error)
	PromoteAdmin(ctx context.Context, telegramID int64) error
	DemoteAdmin(ctx context.Context, telegramID int64) error
	BanUser(ctx context.Context, telegramID int64) error
	UnbanUser(ctx context.Context, telegramID int64) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	Stats(ctx context.Context) (*SystemStats, error)
}

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	userRepo        repository.UserRepository
	rangeRepo       repository.SMSRangeRepository
	holdRepo        repository.HoldRepository
	priceRuleRepo   repository.PriceRuleRepository
	transactionRepo repository.TransactionRepository
	accessLogRepo   repository.AccessLogRepository
	ledger          LedgerFlow
	db              *gorm.DB
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(
	userRepo repository.UserRepository,
	rangeRepo repository.SMSRangeRepository,
	holdRepo repository.HoldRepository,
	priceRuleRepo repository.PriceRuleRepository,
	transactionRepo repository.TransactionRepository,
	accessLogRepo repository.AccessLogRepository,
	ledger LedgerFlow,
	db *gorm.DB,
) AdminFlow {
	return &AdminFlowImpl{
		userRepo:        userRepo,
		rangeRepo:       rangeRepo,
		holdRepo:        holdRepo,
		priceRuleRepo:   priceRuleRepo,
		transactionRepo: transactionRepo,
		accessLogRepo:   accessLogRepo,
		ledger:          ledger,
		db:              db,
	}
}

// SetPrice creates or replaces the range's price rule
func (a *AdminFlowImpl) SetPrice(ctx context.Context, rangeID string, priceCents int64) error {
	if priceCents <= 0 {
		return ErrNonPositivePrice
	}
	rng, err := a.rangeRepo.ByID(ctx, rangeID)
	if err != nil {
		return err
	}
	if rng == nil {
		return ErrRangeNotFound
	}
	return a.priceRuleRepo.Upsert(ctx, &models.PriceRule{
		RangeID:    rangeID,
		PriceCents: priceCents,
	})
}

// Credit tops up a user's balance by Telegram ID
func (a *AdminFlowImpl) Credit(ctx context.Context, telegramID int64, amountCents int64, description string) (int64, error) {
	user, err := a.requireUserByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if description == "" {
		description = fmt.Sprintf("Manual credit for telegram user %d", telegramID)
	}
	balance, err := a.ledger.Credit(ctx, user.ID, amountCents, models.TransactionTypeAdminAdd, description)
	if err != nil {
		return 0, err
	}
	_ = logAccess(ctx, a.accessLogRepo, user.ID, models.AccessActionAdminCredit)
	return balance, nil
}

// Deduct removes balance from a user by Telegram ID. The overdraft guard
// applies to admins too: the ledger never goes negative.
func (a *AdminFlowImpl) Deduct(ctx context.Context, telegramID int64, amountCents int64, description string) (int64, error) {
	user, err := a.requireUserByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if description == "" {
		description = fmt.Sprintf("Manual deduction for telegram user %d", telegramID)
	}
	balance, err := a.ledger.Debit(ctx, user.ID, amountCents, models.TransactionTypeAdminDeduct, description)
	if err != nil {
		return 0, err
	}
	_ = logAccess(ctx, a.accessLogRepo, user.ID, models.AccessActionAdminDeduct)
	return balance, nil
}

// PromoteAdmin grants the admin flag
func (a *AdminFlowImpl) PromoteAdmin(ctx context.Context, telegramID int64) error {
	return a.setAdmin(ctx, telegramID, true, models.AccessActionAdminPromote)
}

// DemoteAdmin revokes the admin flag
func (a *AdminFlowImpl) DemoteAdmin(ctx context.Context, telegramID int64) error {
	return a.setAdmin(ctx, telegramID, false, models.AccessActionAdminDemote)
}

func (a *AdminFlowImpl) setAdmin(ctx context.Context, telegramID int64, isAdmin bool, action string) error {
	updated, err := a.userRepo.SetAdmin(ctx, telegramID, isAdmin)
	if err != nil {
		return err
	}
	if !updated {
		return ErrUserNotFound
	}
	if user, err := a.userRepo.ByTelegramID(ctx, telegramID); err == nil && user != nil {
		_ = logAccess(ctx, a.accessLogRepo, user.ID, action)
	}
	return nil
}

// BanUser blocks a user from the storefront
func (a *AdminFlowImpl) BanUser(ctx context.Context, telegramID int64) error {
	return a.setBanned(ctx, telegramID, true, models.AccessActionAdminBanUser)
}

// UnbanUser lifts a ban
func (a *AdminFlowImpl) UnbanUser(ctx context.Context, telegramID int64) error {
	return a.setBanned(ctx, telegramID, false, models.AccessActionAdminUnbanUser)
}

func (a *AdminFlowImpl) setBanned(ctx context.Context, telegramID int64, isBanned bool, action string) error {
	updated, err := a.userRepo.SetBanned(ctx, telegramID, isBanned)
	if err != nil {
		return err
	}
	if !updated {
		return ErrUserNotFound
	}
	if user, err := a.userRepo.ByTelegramID(ctx, telegramID); err == nil && user != nil {
		_ = logAccess(ctx, a.accessLogRepo, user.ID, action)
	}
	return nil
}

// ListUsers pages through registered users, newest first
func (a *AdminFlowImpl) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return a.userRepo.ByFilter(ctx, models.UserFilter{}, "id DESC", limit, offset)
}

// Stats summarizes the system for the admin dashboard
func (a *AdminFlowImpl) Stats(ctx context.Context) (*SystemStats, error) {
	users, err := a.userRepo.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, err
	}
	admins, err := a.userRepo.Count(ctx, models.UserFilter{IsAdmin: utils.ToPtr(true)})
	if err != nil {
		return nil, err
	}
	ranges, err := a.rangeRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	temporary, permanent, err := a.holdRepo.CountByKind(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := a.transactionRepo.SumChargeRevenue(ctx)
	if err != nil {
		return nil, err
	}
	return &SystemStats{
		Users:              users,
		Admins:             admins,
		Ranges:             ranges,
		TemporaryHolds:     temporary,
		PermanentHolds:     permanent,
		ChargeRevenueCents: revenue,
	}, nil
}

func (a *AdminFlowImpl) requireUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := a.userRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
