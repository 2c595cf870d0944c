package tests

import (
	"context"
	"testing"

	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	testingutil "github.com/numbay/numbay/testing"
	"github.com/numbay/numbay/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		userRepo := repository.NewUserRepository(testDB.DB)
		accessLogRepo := repository.NewAccessLogRepository(testDB.DB)
		userFlow := businessflow.NewUserFlow(userRepo, accessLogRepo)

		t.Run("GetOrCreateRegistersLazily", func(t *testing.T) {
			user, err := userFlow.GetOrCreate(context.Background(), 123456789, utils.ToPtr("alice"))
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, int64(123456789), user.TelegramID)
			assert.Equal(t, int64(0), user.BalanceCents)
			assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", user.UUID.String())

			// Second interaction returns the same row
			again, err := userFlow.GetOrCreate(context.Background(), 123456789, nil)
			require.NoError(t, err)
			assert.Equal(t, user.ID, again.ID)

			count, err := userRepo.Count(context.Background(), models.UserFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("UsernameRefreshedOnReturnVisit", func(t *testing.T) {
			user, err := userFlow.GetOrCreate(context.Background(), 123456789, utils.ToPtr("alice_renamed"))
			require.NoError(t, err)
			require.NotNil(t, user.Username)
			assert.Equal(t, "alice_renamed", *user.Username)

			stored, err := userFlow.ByTelegramID(context.Background(), 123456789)
			require.NoError(t, err)
			require.NotNil(t, stored.Username)
			assert.Equal(t, "alice_renamed", *stored.Username)

			// A nil username on a later visit keeps the stored value
			again, err := userFlow.GetOrCreate(context.Background(), 123456789, nil)
			require.NoError(t, err)
			require.NotNil(t, again.Username)
			assert.Equal(t, "alice_renamed", *again.Username)
		})

		t.Run("FirstInteractionIsLogged", func(t *testing.T) {
			user, err := userFlow.ByTelegramID(context.Background(), 123456789)
			require.NoError(t, err)

			logs, err := userFlow.AccessHistory(context.Background(), user.ID, 10, 0)
			require.NoError(t, err)
			require.NotEmpty(t, logs)
			assert.Equal(t, models.AccessActionStart, logs[0].Action)
		})

		t.Run("BannedUserRejected", func(t *testing.T) {
			banned, err := userRepo.SetBanned(context.Background(), 123456789, true)
			require.NoError(t, err)
			require.True(t, banned)

			_, err = userFlow.GetOrCreate(context.Background(), 123456789, nil)
			assert.True(t, businessflow.IsUserBanned(err))
		})

		t.Run("LookupWithoutCreate", func(t *testing.T) {
			_, err := userFlow.ByTelegramID(context.Background(), 987654321)
			assert.True(t, businessflow.IsUserNotFound(err))

			count, err := userRepo.Count(context.Background(), models.UserFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		return nil
	})
	require.NoError(t, err)
}
