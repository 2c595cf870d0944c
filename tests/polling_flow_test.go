package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/numbay/numbay/app/services"
	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	testingutil "github.com/numbay/numbay/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMessages(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		holdRepo := repository.NewHoldRepository(testDB.DB)
		lifecycle := newLifecycleFlow(testDB)
		upstream := services.NewMockUpstreamService()
		polling := businessflow.NewPollingFlow(holdRepo, lifecycle, upstream)

		smsRange, numbers, err := fixtures.CreateTestRange("CZ Vodafone", 4)
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTestPrice(smsRange.ID, 200))

		t.Run("EmptyInboxStampsPollOnly", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[0], false, -1)
			require.NoError(t, err)

			result, err := polling.CheckMessages(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.Empty(t, result.Messages)
			assert.Nil(t, result.Billing)

			fresh, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.NotNil(t, fresh.FirstPollTime)
			assert.False(t, fresh.IsPermanent)
		})

		t.Run("DeliveredMessageTriggersBilling", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[1], false, -1)
			require.NoError(t, err)

			upstream.Messages[hold.Number] = []services.UpstreamMessage{
				{Number: hold.Number, Sender: "WhatsApp", Text: "Your code is 123456"},
			}

			result, err := polling.CheckMessages(context.Background(), hold.ID)
			require.NoError(t, err)
			require.Len(t, result.Messages, 1)
			require.NotNil(t, result.Billing)
			assert.False(t, result.Billing.AlreadyBilled)
			assert.Equal(t, int64(200), result.Billing.PriceCents)
			assert.Equal(t, int64(800), result.Billing.NewBalanceCents)

			// Polling the same number again finds the message but bills nothing
			again, err := polling.CheckMessages(context.Background(), hold.ID)
			require.NoError(t, err)
			require.NotNil(t, again.Billing)
			assert.True(t, again.Billing.AlreadyBilled)
		})

		t.Run("PollRecordedEvenWhenPanelIsDown", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(1000)
			require.NoError(t, err)
			hold, err := fixtures.CreateTestHold(user.ID, numbers[2], false, -1)
			require.NoError(t, err)

			upstream.Err = services.ErrUpstreamUnavailable
			defer func() { upstream.Err = nil }()

			_, err = polling.CheckMessages(context.Background(), hold.ID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrUpstreamUnavailable))

			// The expiry clock started anyway: a dead panel cannot keep
			// temporary holds alive.
			fresh, err := holdRepo.ByID(context.Background(), hold.ID)
			require.NoError(t, err)
			assert.NotNil(t, fresh.FirstPollTime)
		})

		t.Run("UnknownHold", func(t *testing.T) {
			_, err := polling.CheckMessages(context.Background(), 999999)
			assert.True(t, businessflow.IsHoldNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSyncCatalog(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		catalog := newCatalogFlow(testDB)
		phoneRepo := repository.NewPhoneNumberRepository(testDB.DB)

		upstream := services.NewMockUpstreamService()
		upstream.Ranges = []services.UpstreamRange{
			{Name: "UK Three", Count: 2},
			{Name: "DE O2", Count: 1},
			{Name: "Ghost Range", Count: 0},
		}
		upstream.Numbers["UK Three"] = []services.UpstreamNumber{
			{Number: "+447700900001"}, {Number: "+447700900002"},
		}
		upstream.Numbers["DE O2"] = []services.UpstreamNumber{
			{Number: "+491510000001"},
		}

		sync := businessflow.NewSyncFlow(catalog, upstream, nil)

		result, err := sync.SyncCatalog(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Ranges, "ranges without numbers are not created")
		assert.Equal(t, 3, result.Imported)
		assert.Equal(t, 0, result.Failed)

		count, err := phoneRepo.CountByRange(context.Background(), models.RangeIDFromName("UK Three"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		t.Run("ResyncOnlyImportsNew", func(t *testing.T) {
			upstream.Numbers["DE O2"] = append(upstream.Numbers["DE O2"], services.UpstreamNumber{Number: "+491510000002"})

			result, err := sync.SyncCatalog(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.Imported)
			assert.Equal(t, 3, result.Skipped)
		})

		t.Run("CollidingRangeCountedFailedSyncContinues", func(t *testing.T) {
			// A panel range claiming a number already owned locally
			upstream.Ranges = append(upstream.Ranges, services.UpstreamRange{Name: "Imposter", Count: 1})
			upstream.Numbers["Imposter"] = []services.UpstreamNumber{{Number: "+447700900001"}}

			result, err := sync.SyncCatalog(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, result.Failed)
			assert.Equal(t, 2, result.Ranges)
		})

		t.Run("UpstreamErrorAbortsSync", func(t *testing.T) {
			upstream.Err = services.ErrUpstreamAuth
			defer func() { upstream.Err = nil }()

			_, err := sync.SyncCatalog(context.Background())
			assert.True(t, errors.Is(err, services.ErrUpstreamAuth))
		})

		return nil
	})
	require.NoError(t, err)
}
