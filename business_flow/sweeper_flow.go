package businessflow

import (
	"context"
	"time"

	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
)

// SweeperFlow reclaims temporary holds so inventory recycles
type SweeperFlow interface {
	// SweepExpired deletes temporary holds whose first poll happened more
	// than grace ago. Permanent holds and never-polled holds survive any
	// age. Returns how many holds were released.
	SweepExpired(ctx context.Context, grace time.Duration) (int64, error)
	// ReleaseAllTemporary is the admin escape hatch: drops every temporary
	// hold, ignoring the grace period.
	ReleaseAllTemporary(ctx context.Context) (int64, error)
	// ReleaseUserHolds drops one user's temporary holds.
	ReleaseUserHolds(ctx context.Context, userID uint) (int64, error)
}

// SweeperFlowImpl implements the expiry sweeper business flow
type SweeperFlowImpl struct {
	holdRepo repository.HoldRepository
}

// NewSweeperFlow creates a new sweeper flow instance
func NewSweeperFlow(holdRepo repository.HoldRepository) SweeperFlow {
	return &SweeperFlowImpl{holdRepo: holdRepo}
}

// SweepExpired releases stale temporary holds
func (s *SweeperFlowImpl) SweepExpired(ctx context.Context, grace time.Duration) (int64, error) {
	if grace <= 0 {
		grace = utils.HoldGracePeriod
	}
	released, err := s.holdRepo.DeleteExpired(ctx, utils.UTCNow().Add(-grace))
	if err != nil {
		return 0, err
	}
	holdsSweptTotal.Add(float64(released))
	return released, nil
}

// ReleaseAllTemporary drops every temporary hold regardless of age
func (s *SweeperFlowImpl) ReleaseAllTemporary(ctx context.Context) (int64, error) {
	return s.holdRepo.DeleteAllTemporary(ctx)
}

// ReleaseUserHolds drops one user's temporary holds
func (s *SweeperFlowImpl) ReleaseUserHolds(ctx context.Context, userID uint) (int64, error) {
	return s.holdRepo.DeleteTemporaryByUser(ctx, userID)
}
