package tests

import (
	"testing"
	"time"

	"github.com/numbay/numbay/models"
	"github.com/stretchr/testify/assert"
)

func TestRangeIDFromName(t *testing.T) {
	id := models.RangeIDFromName("UK Vodafone")

	assert.Len(t, id, 12)
	assert.Regexp(t, "^[0-9a-f]{12}$", id)

	// Stable across restarts and insensitive to casing and padding
	assert.Equal(t, id, models.RangeIDFromName("UK Vodafone"))
	assert.Equal(t, id, models.RangeIDFromName("uk vodafone"))
	assert.Equal(t, id, models.RangeIDFromName("  UK Vodafone  "))

	assert.NotEqual(t, id, models.RangeIDFromName("UK Three"))
}

func TestHoldIsExpirable(t *testing.T) {
	now := time.Now().UTC()

	neverPolled := models.Hold{IsPermanent: false}
	assert.False(t, neverPolled.IsExpirable())

	polled := models.Hold{IsPermanent: false, FirstPollTime: &now}
	assert.True(t, polled.IsExpirable())

	permanent := models.Hold{IsPermanent: true, FirstPollTime: &now}
	assert.False(t, permanent.IsExpirable())
}

func TestTransactionIsCredit(t *testing.T) {
	credit := models.Transaction{AmountCents: 500}
	assert.True(t, credit.IsCredit())

	debit := models.Transaction{AmountCents: -500}
	assert.False(t, debit.IsCredit())
}
