package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldResponseMapping(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()
	holds := []*models.Hold{{
		ID:            7,
		UUID:          id,
		RangeID:       "abcdef012345",
		Number:        "+15550001234",
		HoldStartTime: now,
		IsPermanent:   false,
	}}

	out := toHoldResponses(holds)
	require.Len(t, out, 1)
	assert.Equal(t, id.String(), out[0].UUID)
	assert.Equal(t, "abcdef012345", out[0].RangeID)
	assert.Equal(t, "+15550001234", out[0].Number)
	assert.Nil(t, out[0].FirstPollTime)
}

func TestUserResponseMapping(t *testing.T) {
	id := uuid.New()
	user := &models.User{
		ID:           3,
		UUID:         id,
		TelegramID:   123456789,
		Username:     utils.ToPtr("alice"),
		BalanceCents: 1500,
	}

	out := toUserResponse(user)
	assert.Equal(t, id.String(), out.UUID)
	assert.Equal(t, int64(123456789), out.TelegramID)
	assert.Equal(t, int64(1500), out.BalanceCents)
}

func TestTransactionResponseMapping(t *testing.T) {
	id := uuid.New()
	tx := &models.Transaction{
		UUID:              id,
		Type:              models.TransactionTypeSMSCharge,
		AmountCents:       -200,
		Currency:          utils.RialCurrency,
		BalanceAfterCents: 800,
	}

	out := toTransactionResponse(tx)
	assert.Equal(t, id.String(), out.UUID)
	assert.Equal(t, string(models.TransactionTypeSMSCharge), out.Type)
	assert.Equal(t, int64(-200), out.AmountCents)
}
