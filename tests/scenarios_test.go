package tests

import (
	"context"
	"testing"
	"time"

	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/repository"
	testingutil "github.com/numbay/numbay/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Storefront walkthroughs exercising several flows together.

func TestPriceCheckPrecedesInventoryCheck(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)

		// 25 available numbers at 2.00 per SMS; the user carries 5.00 but
		// asks for 20. Plenty of inventory, yet the allocation must fail on
		// the balance gate: 5.00 covers holds, not the price of one SMS...
		smsRange, _, err := fixtures.CreateTestRange("US Mint", 25)
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 200))

		user, err := fixtures.CreateTestUser(500)
		require.NoError(t, err)

		holds, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 20)
		require.NoError(t, err)
		assert.Len(t, holds, 20)

		// ...unless it does: 500 >= 200, so the gate passes. Raise the price
		// above the balance and the same request is rejected before any
		// inventory is touched.
		err = testDB.DB.Exec("UPDATE price_rules SET price_cents = 600 WHERE range_id = ?", smsRange.ID).Error
		require.NoError(t, err)

		poor, err := fixtures.CreateTestUser(500)
		require.NoError(t, err)

		_, err = allocation.Allocate(context.Background(), poor.ID, smsRange.ID, 3)
		require.Error(t, err)
		assert.True(t, businessflow.IsInsufficientBalance(err))

		poorHolds, err := allocation.UserHolds(context.Background(), poor.ID)
		require.NoError(t, err)
		assert.Empty(t, poorHolds)

		return nil
	})
	require.NoError(t, err)
}

func TestHundredNumberPoolWalkthrough(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		phoneRepo := repository.NewPhoneNumberRepository(testDB.DB)
		userRepo := repository.NewUserRepository(testDB.DB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)
		lifecycle := newLifecycleFlow(testDB)

		smsRange, _, err := fixtures.CreateTestRange("CA Rogers", 100)
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 200))

		user, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)

		holds, err := allocation.Allocate(context.Background(), user.ID, smsRange.ID, 20)
		require.NoError(t, err)
		require.Len(t, holds, 20)

		available, err := phoneRepo.CountAvailableByRange(context.Background(), smsRange.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(80), available)

		// First SMS lands on one of the held numbers
		result, err := lifecycle.ConfirmSMSReceived(context.Background(), holds[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(200), result.PriceCents)
		assert.Equal(t, int64(800), result.NewBalanceCents)

		fresh, err := userRepo.ByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(800), fresh.BalanceCents)
		assert.Equal(t, int64(200), fresh.TotalSpentCents)
		assert.Equal(t, int64(1), fresh.TotalSMSReceived)

		// One sms_charge row, the other nineteen holds stay temporary
		revenue, err := transactionRepo.SumChargeRevenue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(200), revenue)

		holdRepo := repository.NewHoldRepository(testDB.DB)
		temporary, permanent, err := holdRepo.CountByKind(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(19), temporary)
		assert.Equal(t, int64(1), permanent)

		return nil
	})
	require.NoError(t, err)
}

func TestReallocateAcrossRanges(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		phoneRepo := repository.NewPhoneNumberRepository(testDB.DB)
		allocation := newAllocationFlow(testDB, 5*time.Minute)

		rangeA, _, err := fixtures.CreateTestRange("JP Docomo", 5)
		require.NoError(t, err)
		rangeB, _, err := fixtures.CreateTestRange("KR SKT", 5)
		require.NoError(t, err)

		user, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)

		_, err = allocation.Allocate(context.Background(), user.ID, rangeA.ID, 5)
		require.NoError(t, err)

		holds, err := allocation.Allocate(context.Background(), user.ID, rangeB.ID, 5)
		require.NoError(t, err)
		for _, h := range holds {
			assert.Equal(t, rangeB.ID, h.RangeID)
		}

		// The rangeA numbers returned to its pool
		availableA, err := phoneRepo.CountAvailableByRange(context.Background(), rangeA.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), availableA)

		availableB, err := phoneRepo.CountAvailableByRange(context.Background(), rangeB.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), availableB)

		return nil
	})
	require.NoError(t, err)
}
