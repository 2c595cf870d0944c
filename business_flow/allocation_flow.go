package businessflow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// AllocationFlow reserves batches of numbers from a range's inventory
type AllocationFlow interface {
	// Allocate reserves batchSize unheld numbers for the user, atomically
	// replacing any temporary holds the user had before. The price check
	// precedes the inventory check; neither failure leaves partial state.
	// A lost race against a concurrent allocation surfaces as
	// ErrAllocationConflict and is safe to retry immediately.
	Allocate(ctx context.Context, userID uint, rangeID string, batchSize int) ([]*models.Hold, error)
	// UserHolds lists the user's current holds.
	UserHolds(ctx context.Context, userID uint) ([]*models.Hold, error)
}

// AllocationFlowImpl implements the allocation business flow
type AllocationFlowImpl struct {
	userRepo      repository.UserRepository
	rangeRepo     repository.SMSRangeRepository
	phoneRepo     repository.PhoneNumberRepository
	holdRepo      repository.HoldRepository
	accessLogRepo repository.AccessLogRepository
	pricing       PricingFlow
	db            *gorm.DB

	gracePeriod  time.Duration
	maxBatchSize int
}

// NewAllocationFlow creates a new allocation flow instance
func NewAllocationFlow(
	userRepo repository.UserRepository,
	rangeRepo repository.SMSRangeRepository,
	phoneRepo repository.PhoneNumberRepository,
	holdRepo repository.HoldRepository,
	accessLogRepo repository.AccessLogRepository,
	pricing PricingFlow,
	db *gorm.DB,
	gracePeriod time.Duration,
	maxBatchSize int,
) AllocationFlow {
	if gracePeriod <= 0 {
		gracePeriod = utils.HoldGracePeriod
	}
	if maxBatchSize <= 0 {
		maxBatchSize = utils.MaxBatchSize
	}
	return &AllocationFlowImpl{
		userRepo:      userRepo,
		rangeRepo:     rangeRepo,
		phoneRepo:     phoneRepo,
		holdRepo:      holdRepo,
		accessLogRepo: accessLogRepo,
		pricing:       pricing,
		db:            db,
		gracePeriod:   gracePeriod,
		maxBatchSize:  maxBatchSize,
	}
}

// Allocate reserves a batch of numbers for the user
func (a *AllocationFlowImpl) Allocate(ctx context.Context, userID uint, rangeID string, batchSize int) ([]*models.Hold, error) {
	if batchSize <= 0 || batchSize > a.maxBatchSize {
		return nil, ErrInvalidBatchSize
	}

	// Opportunistic sweep so stale holds don't starve the pool.
	if _, err := a.holdRepo.DeleteExpired(ctx, utils.UTCNow().Add(-a.gracePeriod)); err != nil {
		return nil, fmt.Errorf("failed to sweep expired holds: %w", err)
	}

	var holds []*models.Hold
	err := repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		user, err := getUser(txCtx, a.userRepo, userID)
		if err != nil {
			return err
		}

		rng, err := a.rangeRepo.ByID(txCtx, rangeID)
		if err != nil {
			return err
		}
		if rng == nil {
			return ErrRangeNotFound
		}

		// Price gate comes before any inventory work: a user who cannot
		// afford a single SMS must not lock up numbers.
		price, err := a.pricing.ResolvePrice(txCtx, rangeID)
		if err != nil {
			return err
		}
		if user.BalanceCents < price {
			return ErrInsufficientBalance
		}

		available, err := a.phoneRepo.AvailableByRange(txCtx, rangeID)
		if err != nil {
			return err
		}
		if len(available) < batchSize {
			return ErrInsufficientInventory
		}

		selected := sampleNumbers(available, batchSize)

		// Replace, never accumulate: one batch of temporary holds per user.
		if _, err := a.holdRepo.DeleteTemporaryByUser(txCtx, userID); err != nil {
			return err
		}

		now := utils.UTCNow()
		holds = make([]*models.Hold, 0, batchSize)
		for _, pn := range selected {
			holds = append(holds, &models.Hold{
				UserID:        userID,
				PhoneNumberID: pn.ID,
				RangeID:       rangeID,
				Number:        pn.Number,
				HoldStartTime: now,
				IsPermanent:   false,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		return a.holdRepo.SaveBatch(txCtx, holds)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// A concurrent allocation committed an overlapping selection
			// first; the whole allocation rolled back and can be retried.
			allocationsTotal.WithLabelValues("conflict").Inc()
			return nil, ErrAllocationConflict
		}
		allocationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	allocationsTotal.WithLabelValues("ok").Inc()
	holdsAllocated.Add(float64(len(holds)))
	_ = logAccess(ctx, a.accessLogRepo, userID, models.AccessActionAllocate)

	return holds, nil
}

// UserHolds lists the user's current holds
func (a *AllocationFlowImpl) UserHolds(ctx context.Context, userID uint) ([]*models.Hold, error) {
	if _, err := getUser(ctx, a.userRepo, userID); err != nil {
		return nil, err
	}
	return a.holdRepo.ListByUser(ctx, userID)
}

// sampleNumbers picks batchSize numbers uniformly at random without
// replacement. Random selection keeps repeated requests from always
// surfacing the same head-of-list numbers.
func sampleNumbers(available []*models.PhoneNumber, batchSize int) []*models.PhoneNumber {
	selected := make([]*models.PhoneNumber, 0, batchSize)
	for _, idx := range rand.Perm(len(available))[:batchSize] {
		selected = append(selected, available[idx])
	}
	return selected
}
