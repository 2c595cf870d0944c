package tests

import (
	"context"
	"testing"

	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	testingutil "github.com/numbay/numbay/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminFlow(testDB *testingutil.TestDB) businessflow.AdminFlow {
	userRepo := repository.NewUserRepository(testDB.DB)
	rangeRepo := repository.NewSMSRangeRepository(testDB.DB)
	holdRepo := repository.NewHoldRepository(testDB.DB)
	priceRuleRepo := repository.NewPriceRuleRepository(testDB.DB)
	transactionRepo := repository.NewTransactionRepository(testDB.DB)
	accessLogRepo := repository.NewAccessLogRepository(testDB.DB)
	ledger := businessflow.NewLedgerFlow(userRepo, transactionRepo, testDB.DB)

	return businessflow.NewAdminFlow(
		userRepo, rangeRepo, holdRepo, priceRuleRepo, transactionRepo, accessLogRepo,
		ledger, testDB.DB,
	)
}

func TestAdminSetPrice(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		admin := newAdminFlow(testDB)
		priceRuleRepo := repository.NewPriceRuleRepository(testDB.DB)
		pricing := businessflow.NewPricingFlow(priceRuleRepo, 0)

		smsRange, _, err := fixtures.CreateTestRange("BE Proximus", 1)
		require.NoError(t, err)

		t.Run("SetsAndReplacesPrice", func(t *testing.T) {
			require.NoError(t, admin.SetPrice(context.Background(), smsRange.ID, 400))

			price, err := pricing.ResolvePrice(context.Background(), smsRange.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(400), price)

			// No history: the new rule replaces the old one
			require.NoError(t, admin.SetPrice(context.Background(), smsRange.ID, 650))
			price, err = pricing.ResolvePrice(context.Background(), smsRange.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(650), price)
		})

		t.Run("RejectsNonPositivePrice", func(t *testing.T) {
			err := admin.SetPrice(context.Background(), smsRange.ID, 0)
			assert.ErrorIs(t, err, businessflow.ErrNonPositivePrice)
		})

		t.Run("RejectsUnknownRange", func(t *testing.T) {
			err := admin.SetPrice(context.Background(), "000000000000", 100)
			assert.True(t, businessflow.IsRangeNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminLedgerAdjustments(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		admin := newAdminFlow(testDB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)

		user, err := fixtures.CreateTestUser(0)
		require.NoError(t, err)

		t.Run("CreditByTelegramID", func(t *testing.T) {
			balance, err := admin.Credit(context.Background(), user.TelegramID, 2000, "")
			require.NoError(t, err)
			assert.Equal(t, int64(2000), balance)

			entries, err := transactionRepo.ListByUser(context.Background(), user.ID, 1, 0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, models.TransactionTypeAdminAdd, entries[0].Type)
		})

		t.Run("DeductByTelegramID", func(t *testing.T) {
			balance, err := admin.Deduct(context.Background(), user.TelegramID, 500, "Refund reversal")
			require.NoError(t, err)
			assert.Equal(t, int64(1500), balance)

			entries, err := transactionRepo.ListByUser(context.Background(), user.ID, 1, 0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, models.TransactionTypeAdminDeduct, entries[0].Type)
			assert.Equal(t, "Refund reversal", entries[0].Description)
		})

		t.Run("DeductGuardedAgainstOverdraft", func(t *testing.T) {
			_, err := admin.Deduct(context.Background(), user.TelegramID, 99999, "")
			assert.True(t, businessflow.IsInsufficientFunds(err))
		})

		t.Run("UnknownTelegramID", func(t *testing.T) {
			_, err := admin.Credit(context.Background(), 42, 100, "")
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminUserFlags(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		admin := newAdminFlow(testDB)
		userRepo := repository.NewUserRepository(testDB.DB)

		user, err := fixtures.CreateTestUser(0)
		require.NoError(t, err)

		t.Run("PromoteAndDemote", func(t *testing.T) {
			require.NoError(t, admin.PromoteAdmin(context.Background(), user.TelegramID))
			fresh, err := userRepo.ByTelegramID(context.Background(), user.TelegramID)
			require.NoError(t, err)
			assert.True(t, fresh.IsAdmin)

			require.NoError(t, admin.DemoteAdmin(context.Background(), user.TelegramID))
			fresh, err = userRepo.ByTelegramID(context.Background(), user.TelegramID)
			require.NoError(t, err)
			assert.False(t, fresh.IsAdmin)
		})

		t.Run("BanAndUnban", func(t *testing.T) {
			require.NoError(t, admin.BanUser(context.Background(), user.TelegramID))
			fresh, err := userRepo.ByTelegramID(context.Background(), user.TelegramID)
			require.NoError(t, err)
			assert.True(t, fresh.IsBanned)

			require.NoError(t, admin.UnbanUser(context.Background(), user.TelegramID))
			fresh, err = userRepo.ByTelegramID(context.Background(), user.TelegramID)
			require.NoError(t, err)
			assert.False(t, fresh.IsBanned)
		})

		t.Run("UnknownTelegramID", func(t *testing.T) {
			err := admin.PromoteAdmin(context.Background(), 42)
			assert.True(t, businessflow.IsUserNotFound(err))
			err = admin.BanUser(context.Background(), 42)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminStats(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		admin := newAdminFlow(testDB)

		_, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		user, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)

		smsRange, numbers, err := fixtures.CreateTestRange("GR Cosmote", 3)
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 300))

		_, err = fixtures.CreateTestHold(user.ID, numbers[0], false, -1)
		require.NoError(t, err)
		hold, err := fixtures.CreateTestHold(user.ID, numbers[1], false, 0)
		require.NoError(t, err)

		lifecycle := newLifecycleFlow(testDB)
		_, err = lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
		require.NoError(t, err)

		stats, err := admin.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Users)
		assert.Equal(t, int64(1), stats.Admins)
		assert.Equal(t, int64(1), stats.Ranges)
		assert.Equal(t, int64(1), stats.TemporaryHolds)
		assert.Equal(t, int64(1), stats.PermanentHolds)
		assert.Equal(t, int64(300), stats.ChargeRevenueCents)

		return nil
	})
	require.NoError(t, err)
}
