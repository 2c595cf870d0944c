package tests

import (
	"context"
	"testing"
	"time"

	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	testingutil "github.com/numbay/numbay/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAllocationFlow(testDB *testingutil.TestDB, grace time.Duration) businessflow.AllocationFlow {
	userRepo := repository.NewUserRepository(testDB.DB)
	rangeRepo := repository.NewSMSRangeRepository(testDB.DB)
	phoneRepo := repository.NewPhoneNumberRepository(testDB.DB)
	holdRepo := repository.NewHoldRepository(testDB.DB)
	accessLogRepo := repository.NewAccessLogRepository(testDB.DB)
	priceRuleRepo := repository.NewPriceRuleRepository(testDB.DB)
	pricing := businessflow.NewPricingFlow(priceRuleRepo, 0)

	return businessflow.NewAllocationFlow(
		userRepo, rangeRepo, phoneRepo, holdRepo, accessLogRepo,
		pricing, testDB.DB, grace, 0,
	)
}

func TestAllocateHolds(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		holdRepo := repository.NewHoldRepository(testDB.DB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)

		smsRange, _, err := fixtures.CreateTestRange("UK Vodafone", 10)
		require.NoError(t, err)

		t.Run("AllocatesRequestedBatch", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			holds, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 3)
			require.NoError(t, err)
			require.Len(t, holds, 3)

			seen := make(map[string]struct{})
			for _, h := range holds {
				assert.Equal(t, user.ID, h.UserID)
				assert.Equal(t, smsRange.ID, h.RangeID)
				assert.False(t, h.IsPermanent)
				assert.Nil(t, h.FirstPollTime)
				seen[h.Number] = struct{}{}
			}
			assert.Len(t, seen, 3, "allocated numbers must be distinct")
		})

		t.Run("ReallocationReplacesTemporaryHolds", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			first, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 4)
			require.NoError(t, err)
			require.Len(t, first, 4)

			second, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 2)
			require.NoError(t, err)
			require.Len(t, second, 2)

			holds, err := holdRepo.ListByUser(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Len(t, holds, 2, "old temporary holds must be replaced, not accumulated")
		})

		t.Run("PermanentHoldsSurviveReallocation", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			holds, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 2)
			require.NoError(t, err)

			promoted, err := holdRepo.PromoteIfTemporary(context.Background(), holds[0].ID)
			require.NoError(t, err)
			require.True(t, promoted)

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 1)
			require.NoError(t, err)

			all, err := holdRepo.ListByUser(context.Background(), user.ID)
			require.NoError(t, err)
			require.Len(t, all, 2)

			var permanents int
			for _, h := range all {
				if h.IsPermanent {
					permanents++
					assert.Equal(t, holds[0].Number, h.Number)
				}
			}
			assert.Equal(t, 1, permanents)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAllocateRejections(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)

		smsRange, _, err := fixtures.CreateTestRange("DE O2", 5)
		require.NoError(t, err)

		t.Run("InvalidBatchSize", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 0)
			assert.True(t, businessflow.IsInvalidBatchSize(err))

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 101)
			assert.True(t, businessflow.IsInvalidBatchSize(err))
		})

		t.Run("UnknownRange", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			_, err = allocation.Allocate(context.Background(), user.ID, "000000000000", 1)
			assert.True(t, businessflow.IsRangeNotFound(err))
		})

		t.Run("BalanceBelowPriceBlocksBeforeInventory", func(t *testing.T) {
			require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 500))

			user, err := fixtures.CreateTestUser(499)
			require.NoError(t, err)

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 1)
			assert.True(t, businessflow.IsInsufficientBalance(err))

			// No inventory was locked for the rejected user
			holds, err := allocation.UserHolds(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Empty(t, holds)
		})

		t.Run("InsufficientInventory", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(10000)
			require.NoError(t, err)

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 6)
			assert.True(t, businessflow.IsInsufficientInventory(err))
		})

		t.Run("BannedUserRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(10000)
			require.NoError(t, err)

			userRepo := repository.NewUserRepository(testDB.DB)
			banned, err := userRepo.SetBanned(context.Background(), user.TelegramID, true)
			require.NoError(t, err)
			require.True(t, banned)

			_, err = allocation.Allocate(context.Background(), user.ID, smsRange.ID, 1)
			assert.True(t, businessflow.IsUserBanned(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestHeldNumbersAreMutuallyExclusive(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		holdRepo := repository.NewHoldRepository(testDB.DB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)

		smsRange, numbers, err := fixtures.CreateTestRange("FR Orange", 3)
		require.NoError(t, err)

		alice, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)
		bob, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)

		aliceHolds, err := allocation.Allocate(context.Background(), alice.ID, smsRange.ID, 2)
		require.NoError(t, err)

		bobHolds, err := allocation.Allocate(context.Background(), bob.ID, smsRange.ID, 1)
		require.NoError(t, err)

		held := make(map[string]struct{})
		for _, h := range aliceHolds {
			held[h.Number] = struct{}{}
		}
		for _, h := range bobHolds {
			_, taken := held[h.Number]
			assert.False(t, taken, "number %s must not be held twice", h.Number)
		}

		// The database constraint is the last line of defense: even a direct
		// write bypassing the allocator cannot double-claim a number.
		err = holdRepo.Save(context.Background(), &models.Hold{
			UserID:        bob.ID,
			PhoneNumberID: aliceHolds[0].PhoneNumberID,
			RangeID:       smsRange.ID,
			Number:        aliceHolds[0].Number,
			HoldStartTime: time.Now().UTC(),
		})
		require.Error(t, err)
		assert.True(t, repository.IsUniqueViolation(err))

		// All three numbers are claimed, nothing left to allocate
		_, err = allocation.Allocate(context.Background(), bob.ID, smsRange.ID, 2)
		assert.True(t, businessflow.IsInsufficientInventory(err))
		_ = numbers

		return nil
	})
	require.NoError(t, err)
}
