package businessflow

import (
	"context"
	"fmt"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// BillingResult describes the outcome of an SMS confirmation
type BillingResult struct {
	HoldID          uint   `json:"hold_id"`
	Number          string `json:"number"`
	AlreadyBilled   bool   `json:"already_billed"`
	PriceCents      int64  `json:"price_cents"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}

// LifecycleFlow drives a hold from temporary to permanent
type LifecycleFlow interface {
	// FirstPoll anchors the hold's expiry clock on the user's first SMS
	// check. A second call is a no-op.
	FirstPoll(ctx context.Context, holdID uint) error
	// ConfirmSMSReceived promotes the hold and debits the owner exactly
	// once. Re-confirming an already-permanent hold is a no-op success.
	// When the debit fails the hold stays temporary and nothing is written.
	ConfirmSMSReceived(ctx context.Context, holdID uint) (*BillingResult, error)
}

// LifecycleFlowImpl implements the hold lifecycle business flow
type LifecycleFlowImpl struct {
	holdRepo        repository.HoldRepository
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
	accessLogRepo   repository.AccessLogRepository
	pricing         PricingFlow
	db              *gorm.DB
}

// NewLifecycleFlow creates a new lifecycle flow instance
func NewLifecycleFlow(
	holdRepo repository.HoldRepository,
	userRepo repository.UserRepository,
	transactionRepo repository.TransactionRepository,
	accessLogRepo repository.AccessLogRepository,
	pricing PricingFlow,
	db *gorm.DB,
) LifecycleFlow {
	return &LifecycleFlowImpl{
		holdRepo:        holdRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		accessLogRepo:   accessLogRepo,
		pricing:         pricing,
		db:              db,
	}
}

// FirstPoll stamps the hold's first poll time exactly once
func (l *LifecycleFlowImpl) FirstPoll(ctx context.Context, holdID uint) error {
	hold, err := l.holdRepo.ByID(ctx, holdID)
	if err != nil {
		return err
	}
	if hold == nil {
		return ErrHoldNotFound
	}
	if err := l.holdRepo.SetFirstPollTime(ctx, holdID, utils.UTCNow()); err != nil {
		return err
	}
	_ = logAccess(ctx, l.accessLogRepo, hold.UserID, models.AccessActionPollSMS)
	return nil
}

// ConfirmSMSReceived performs the promote-and-bill transition. The guarded
// promotion update inside the transaction serializes concurrent
// confirmations of the same hold; the transaction commits only if the debit
// succeeded, so a promotion can never outlive a failed payment.
func (l *LifecycleFlowImpl) ConfirmSMSReceived(ctx context.Context, holdID uint) (*BillingResult, error) {
	var result *BillingResult
	err := repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		hold, err := l.holdRepo.ByID(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold == nil {
			return ErrHoldNotFound
		}
		if hold.IsPermanent {
			// Repeated SMS-found events for a billed number must not
			// re-bill.
			result = &BillingResult{HoldID: hold.ID, Number: hold.Number, AlreadyBilled: true}
			return nil
		}

		price, err := l.pricing.ResolvePrice(txCtx, hold.RangeID)
		if err != nil {
			return err
		}

		promoted, err := l.holdRepo.PromoteIfTemporary(txCtx, hold.ID)
		if err != nil {
			return err
		}
		if !promoted {
			result = &BillingResult{HoldID: hold.ID, Number: hold.Number, AlreadyBilled: true}
			return nil
		}

		applied, err := l.userRepo.ApplyDebit(txCtx, hold.UserID, price, true)
		if err != nil {
			return err
		}
		if !applied {
			// Rolls back the promotion along with everything else.
			return ErrInsufficientFunds
		}

		user, err := l.userRepo.ByID(txCtx, hold.UserID)
		if err != nil {
			return err
		}

		if err := l.transactionRepo.Save(txCtx, &models.Transaction{
			UserID:            hold.UserID,
			Type:              models.TransactionTypeSMSCharge,
			AmountCents:       -price,
			Currency:          utils.RialCurrency,
			BalanceAfterCents: user.BalanceCents,
			Description:       fmt.Sprintf("SMS received on %s (range %s)", hold.Number, hold.RangeID),
			CreatedAt:         utils.UTCNow(),
		}); err != nil {
			return err
		}

		result = &BillingResult{
			HoldID:          hold.ID,
			Number:          hold.Number,
			PriceCents:      price,
			NewBalanceCents: user.BalanceCents,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyBilled {
		promotionsTotal.Inc()
		if hold, err := l.holdRepo.ByID(ctx, holdID); err == nil && hold != nil {
			_ = logAccess(ctx, l.accessLogRepo, hold.UserID, models.AccessActionSMSBilled)
		}
	}
	return result, nil
}
