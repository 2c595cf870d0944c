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

func TestLedgerFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		userRepo := repository.NewUserRepository(testDB.DB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)
		ledger := businessflow.NewLedgerFlow(userRepo, transactionRepo, testDB.DB)

		t.Run("CreditIncreasesBalanceAndAppendsEntry", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(0)
			require.NoError(t, err)

			balance, err := ledger.Credit(context.Background(), user.ID, 500, models.TransactionTypeRecharge, "Top-up")
			require.NoError(t, err)
			assert.Equal(t, int64(500), balance)

			entries, err := transactionRepo.ListByUser(context.Background(), user.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, models.TransactionTypeRecharge, entries[0].Type)
			assert.Equal(t, int64(500), entries[0].AmountCents)
			assert.Equal(t, int64(500), entries[0].BalanceAfterCents)
		})

		t.Run("DebitDecreasesBalance", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)

			balance, err := ledger.Debit(context.Background(), user.ID, 300, models.TransactionTypeAdminDeduct, "Correction")
			require.NoError(t, err)
			assert.Equal(t, int64(700), balance)

			entries, err := transactionRepo.ListByUser(context.Background(), user.ID, 10, 0)
			require.NoError(t, err)
			require.NotEmpty(t, entries)
			assert.Equal(t, int64(-300), entries[0].AmountCents)
		})

		t.Run("DebitRejectsOverdraft", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(100)
			require.NoError(t, err)

			_, err = ledger.Debit(context.Background(), user.ID, 200, models.TransactionTypeAdminDeduct, "Too much")
			require.Error(t, err)
			assert.True(t, businessflow.IsInsufficientFunds(err))

			// Nothing was written
			balance, err := ledger.Balance(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(100), balance)

			sum, err := transactionRepo.SumByUser(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(100), sum)
		})

		t.Run("NonPositiveAmountsRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(100)
			require.NoError(t, err)

			_, err = ledger.Credit(context.Background(), user.ID, 0, models.TransactionTypeRecharge, "Zero")
			assert.True(t, businessflow.IsNonPositiveAmount(err))

			_, err = ledger.Debit(context.Background(), user.ID, -5, models.TransactionTypeAdminDeduct, "Negative")
			assert.True(t, businessflow.IsNonPositiveAmount(err))
		})

		t.Run("UnknownUserRejected", func(t *testing.T) {
			_, err := ledger.Credit(context.Background(), 999999, 100, models.TransactionTypeRecharge, "Ghost")
			assert.True(t, businessflow.IsUserNotFound(err))

			_, err = ledger.Balance(context.Background(), 999999)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("BalanceMatchesLedgerSum", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(0)
			require.NoError(t, err)

			_, err = ledger.Credit(context.Background(), user.ID, 1000, models.TransactionTypeRecharge, "Top-up")
			require.NoError(t, err)
			_, err = ledger.Debit(context.Background(), user.ID, 250, models.TransactionTypeAdminDeduct, "Correction")
			require.NoError(t, err)
			_, err = ledger.Credit(context.Background(), user.ID, 40, models.TransactionTypeAdminAdd, "Adjustment")
			require.NoError(t, err)

			balance, err := ledger.Balance(context.Background(), user.ID)
			require.NoError(t, err)

			sum, err := transactionRepo.SumByUser(context.Background(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, balance, sum)
			assert.Equal(t, int64(790), balance)
		})

		t.Run("HistoryNewestFirst", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(0)
			require.NoError(t, err)

			_, err = ledger.Credit(context.Background(), user.ID, 100, models.TransactionTypeRecharge, "First")
			require.NoError(t, err)
			_, err = ledger.Credit(context.Background(), user.ID, 200, models.TransactionTypeRecharge, "Second")
			require.NoError(t, err)

			entries, err := ledger.History(context.Background(), user.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "Second", entries[0].Description)
			assert.Equal(t, "First", entries[1].Description)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLedgerSettlesForBannedUser(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		userRepo := repository.NewUserRepository(testDB.DB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)
		ledger := businessflow.NewLedgerFlow(userRepo, transactionRepo, testDB.DB)

		user, err := fixtures.CreateTestUser(1000)
		require.NoError(t, err)

		banned, err := userRepo.SetBanned(context.Background(), user.TelegramID, true)
		require.NoError(t, err)
		require.True(t, banned)

		// Admin adjustments and billing of pre-ban holds still settle
		balance, err := ledger.Debit(context.Background(), user.ID, 400, models.TransactionTypeSMSCharge, "Pre-ban billing")
		require.NoError(t, err)
		assert.Equal(t, int64(600), balance)

		return nil
	})
	require.NoError(t, err)
}
