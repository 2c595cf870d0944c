package businessflow

import (
	"context"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// LedgerFlow handles balance mutations. Every mutation is atomically paired
// with an append-only transaction row, so the cached balance and the ledger
// can never diverge.
type LedgerFlow interface {
	// Credit increases the balance. amountCents must be positive.
	Credit(ctx context.Context, userID uint, amountCents int64, txType models.TransactionType, description string) (int64, error)
	// Debit decreases the balance, guarded against overdraft. On
	// ErrInsufficientFunds nothing is mutated.
	Debit(ctx context.Context, userID uint, amountCents int64, txType models.TransactionType, description string) (int64, error)
	// Balance returns the cached balance projection.
	Balance(ctx context.Context, userID uint) (int64, error)
	// History returns the user's ledger entries, newest first.
	History(ctx context.Context, userID uint, limit, offset int) ([]*models.Transaction, error)
}

// LedgerFlowImpl implements the ledger business flow
type LedgerFlowImpl struct {
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
	db              *gorm.DB
}

// NewLedgerFlow creates a new ledger flow instance
func NewLedgerFlow(
	userRepo repository.UserRepository,
	transactionRepo repository.TransactionRepository,
	db *gorm.DB,
) LedgerFlow {
	return &LedgerFlowImpl{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		db:              db,
	}
}

// Credit increases the balance and appends the matching ledger entry
func (l *LedgerFlowImpl) Credit(ctx context.Context, userID uint, amountCents int64, txType models.TransactionType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrNonPositiveAmount
	}

	var newBalance int64
	err := repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		// Banned users keep their ledger: admin adjustments and billing of
		// pre-ban holds must still settle, so only existence is checked.
		if err := l.requireUser(txCtx, userID); err != nil {
			return err
		}

		if err := l.userRepo.ApplyCredit(txCtx, userID, amountCents); err != nil {
			return err
		}

		user, err := l.userRepo.ByID(txCtx, userID)
		if err != nil {
			return err
		}
		newBalance = user.BalanceCents

		return l.transactionRepo.Save(txCtx, &models.Transaction{
			UserID:            userID,
			Type:              txType,
			AmountCents:       amountCents,
			Currency:          utils.RialCurrency,
			BalanceAfterCents: newBalance,
			Description:       description,
			CreatedAt:         utils.UTCNow(),
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit decreases the balance and appends the matching ledger entry. The
// overdraft guard lives in the UPDATE itself, so two racing debits cannot
// both pass a stale balance check.
func (l *LedgerFlowImpl) Debit(ctx context.Context, userID uint, amountCents int64, txType models.TransactionType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrNonPositiveAmount
	}

	var newBalance int64
	err := repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.requireUser(txCtx, userID); err != nil {
			return err
		}

		applied, err := l.userRepo.ApplyDebit(txCtx, userID, amountCents, false)
		if err != nil {
			return err
		}
		if !applied {
			return ErrInsufficientFunds
		}

		user, err := l.userRepo.ByID(txCtx, userID)
		if err != nil {
			return err
		}
		newBalance = user.BalanceCents

		return l.transactionRepo.Save(txCtx, &models.Transaction{
			UserID:            userID,
			Type:              txType,
			AmountCents:       -amountCents,
			Currency:          utils.RialCurrency,
			BalanceAfterCents: newBalance,
			Description:       description,
			CreatedAt:         utils.UTCNow(),
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance returns the cached balance projection
func (l *LedgerFlowImpl) Balance(ctx context.Context, userID uint) (int64, error) {
	user, err := l.userRepo.ByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	return user.BalanceCents, nil
}

// History returns the user's ledger entries, newest first
func (l *LedgerFlowImpl) History(ctx context.Context, userID uint, limit, offset int) ([]*models.Transaction, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.transactionRepo.ListByUser(ctx, userID, limit, offset)
}

// requireUser checks the user row exists
func (l *LedgerFlowImpl) requireUser(ctx context.Context, userID uint) error {
	user, err := l.userRepo.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return nil
}
