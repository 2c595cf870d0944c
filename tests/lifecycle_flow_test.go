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

func newLifecycleFlow(testDB *testingutil.TestDB) businessflow.LifecycleFlow {
	holdRepo := repository.NewHoldRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	transactionRepo := repository.NewTransactionRepository(testDB.DB)
	accessLogRepo := repository.NewAccessLogRepository(testDB.DB)
	priceRuleRepo := repository.NewPriceRuleRepository(testDB.DB)
	pricing := businessflow.NewPricingFlow(priceRuleRepo, 0)

	return businessflow.NewLifecycleFlow(
		holdRepo, userRepo, transactionRepo, accessLogRepo, pricing, testDB.DB,
	)
}

func TestFirstPoll(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		holdRepo := repository.NewHoldRepository(testDB.DB)
		lifecycle := newLifecycleFlow(testDB)

		user, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)
		_, numbers, err := fixtures.CreateTestRange("NL KPN", 2)
		require.NoError(t, err)

		t.Run("StampsExactlyOnce", func(t *testing.T) {
			hold, err := fixtures.CreateTestHold(user.ID, numbers[0], false, -1)
			require.NoError(t, err)
			require.Nil(t, hold.FirstPollTime)

			require.NoError(t, lifecycle.FirstPoll(context.Background(), hold.ID))

			polled, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			require.NotNil(t, polled.FirstPollTime)
			firstStamp := *polled.FirstPollTime

			time.Sleep(20 * time.Millisecond)
			require.NoError(t, lifecycle.FirstPoll(context.Background(), hold.ID))

			again, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			require.NotNil(t, again.FirstPollTime)
			assert.True(t, again.FirstPollTime.Equal(firstStamp), "second poll must not move the expiry anchor")
		})

		t.Run("UnknownHold", func(t *testing.T) {
			err := lifecycle.FirstPoll(context.Background(), 999999)
			assert.True(t, businessflow.IsHoldNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConfirmSMSReceived(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		holdRepo := repository.NewHoldRepository(testDB.DB)
		userRepo := repository.NewUserRepository(testDB.DB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)
		lifecycle := newLifecycleFlow(testDB)

		smsRange, numbers, err := fixtures.CreateTestRange("SE Telia", 5)
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 250))

		t.Run("PromotesAndBillsExactlyOnce", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[0], false, 0)
			require.NoError(t, err)

			result, err := lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.False(t, result.AlreadyBilled)
			assert.Equal(t, int64(250), result.PriceCents)
			assert.Equal(t, int64(750), result.NewBalanceCents)

			promoted, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.True(t, promoted.IsPermanent)

			// Re-confirmation is a no-op success, not a second charge
			second, err := lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.True(t, second.AlreadyBilled)

			charges, err := transactionRepo.Count(context.Background(), models.TransactionFilter{
				UserID: &user.ID,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(2), charges, "one seed credit plus exactly one sms charge")

			fresh, err := userRepo.ByID(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(750), fresh.BalanceCents)
			assert.Equal(t, int64(250), fresh.TotalSpentCents)
			assert.Equal(t, int64(1), fresh.TotalSMSReceived)
		})

		t.Run("FailedDebitLeavesHoldTemporary", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(100)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[1], false, 0)
			require.NoError(t, err)

			_, err = lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsInsufficientFunds(err))

			// The promotion rolled back with the debit
			fresh, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.False(t, fresh.IsPermanent)

			balance, err := userRepo.ByID(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(100), balance.BalanceCents)

			sum, err := transactionRepo.SumByUser(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(100), sum)
		})

		t.Run("ExactBalanceIsEnough", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(250)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[2], false, 0)
			require.NoError(t, err)

			result, err := lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), result.NewBalanceCents)
		})

		t.Run("UnknownHold", func(t *testing.T) {
			_, err := lifecycle.ConfirmSMSReceived(context.Background(), 999999)
			assert.True(t, businessflow.IsHoldNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConfirmSMSUsesFallbackPrice(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		lifecycle := newLifecycleFlow(testDB)

		// No price rule for this range
		_, numbers, err := fixtures.CreateTestRange("ES Movistar", 1)
		require.NoError(t, err)

		user, err := fixtures.CreateTestUser(500)
		require.NoError(t, err)
		hold, err := fixtures.CreateTestHold(user.ID, numbers[0], false, 0)
		require.NoError(t, err)

		result, err := lifecycle.ConfirmSMSReceived(context.Background(), hold.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), result.PriceCents)
		assert.Equal(t, int64(400), result.NewBalanceCents)

		return nil
	})
	require.NoError(t, err)
}
