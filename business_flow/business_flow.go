// Package businessflow contains the core business logic for the number-hold and ledger engine
package businessflow

import (
	"context"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
)

// getUser loads a user by ID and rejects missing or banned users
func getUser(ctx context.Context, repo repository.UserRepository, userID uint) (*models.User, error) {
	user, err := repo.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBanned {
		return nil, ErrUserBanned
	}
	return user, nil
}

// logAccess appends an access log row. Failures are not fatal to the
// calling flow: the audit trail is best-effort outside the core transaction.
func logAccess(ctx context.Context, repo repository.AccessLogRepository, userID uint, action string) error {
	return repo.Save(ctx, &models.AccessLog{
		UserID:    userID,
		Action:    action,
		Timestamp: utils.UTCNow(),
	})
}
