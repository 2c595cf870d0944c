// Package testing provides test utilities and database setup for testing the hold and ledger system
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a user with the given balance
func (tf *TestFixtures) CreateTestUser(balanceCents int64) (*models.User, error) {
	telegramID := int64(rand.Intn(900000000) + 100000000)
	username := fmt.Sprintf("user_%d", telegramID)

	user := &models.User{
		TelegramID:   telegramID,
		Username:     &username,
		BalanceCents: balanceCents,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	// Seed the ledger so balance == sum of entries holds from the start
	if balanceCents != 0 {
		entry := &models.Transaction{
			UserID:            user.ID,
			Type:              models.TransactionTypeRecharge,
			AmountCents:       balanceCents,
			Currency:          utils.RialCurrency,
			BalanceAfterCents: balanceCents,
			Description:       "Initial test balance",
		}
		if err := tf.DB.DB.Create(entry).Error; err != nil {
			return nil, fmt.Errorf("failed to seed test ledger: %w", err)
		}
	}

	return user, nil
}

// CreateTestAdmin creates an admin user
func (tf *TestFixtures) CreateTestAdmin() (*models.User, error) {
	user, err := tf.CreateTestUser(0)
	if err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Model(user).Update("is_admin", true).Error; err != nil {
		return nil, fmt.Errorf("failed to promote test user: %w", err)
	}
	user.IsAdmin = true
	return user, nil
}

// CreateTestRange creates a range with the given number of phone numbers
// and returns the range plus its inventory
func (tf *TestFixtures) CreateTestRange(name string, numberCount int) (*models.SMSRange, []*models.PhoneNumber, error) {
	smsRange := &models.SMSRange{
		ID:   models.RangeIDFromName(name),
		Name: name,
	}
	if err := tf.DB.DB.Create(smsRange).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test range: %w", err)
	}

	prefix := rand.Intn(900) + 100
	numbers := make([]*models.PhoneNumber, 0, numberCount)
	for i := 0; i < numberCount; i++ {
		number := &models.PhoneNumber{
			RangeID: smsRange.ID,
			Number:  fmt.Sprintf("+1%03d555%04d", prefix, i),
		}
		if err := tf.DB.DB.Create(number).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create test number %d: %w", i, err)
		}
		numbers = append(numbers, number)
	}

	return smsRange, numbers, nil
}

// SetTestPrice sets the unit price for a range
func (tf *TestFixtures) SetTestPrice(rangeID string, priceCents int64) error {
	rule := &models.PriceRule{
		RangeID:    rangeID,
		PriceCents: priceCents,
	}
	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create test price rule: %w", err)
	}
	return nil
}

// CreateTestHold creates a hold on the given number. polledAgo controls the
// first poll timestamp: negative means never polled.
func (tf *TestFixtures) CreateTestHold(userID uint, number *models.PhoneNumber, permanent bool, polledAgo time.Duration) (*models.Hold, error) {
	hold := &models.Hold{
		UserID:        userID,
		PhoneNumberID: number.ID,
		RangeID:       number.RangeID,
		Number:        number.Number,
		HoldStartTime: utils.UTCNow().Add(-polledAgo - time.Minute),
		IsPermanent:   permanent,
	}
	if polledAgo >= 0 {
		polled := utils.UTCNow().Add(-polledAgo)
		hold.FirstPollTime = &polled
	}
	if err := tf.DB.DB.Create(hold).Error; err != nil {
		return nil, fmt.Errorf("failed to create test hold: %w", err)
	}
	return hold, nil
}
