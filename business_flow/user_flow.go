package businessflow

import (
	"context"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
)

// UserFlow registers Telegram users on first contact and exposes their
// profile and audit trail.
type UserFlow interface {
	// GetOrCreate returns the user for the Telegram ID, creating the row on
	// first contact. The stored username is refreshed when it changed.
	GetOrCreate(ctx context.Context, telegramID int64, username *string) (*models.User, error)
	ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	AccessHistory(ctx context.Context, userID uint, limit, offset int) ([]*models.AccessLog, error)
}

// UserFlowImpl implements the user business flow
type UserFlowImpl struct {
	userRepo      repository.UserRepository
	accessLogRepo repository.AccessLogRepository
}

// NewUserFlow creates a new user flow instance
func NewUserFlow(userRepo repository.UserRepository, accessLogRepo repository.AccessLogRepository) UserFlow {
	return &UserFlowImpl{
		userRepo:      userRepo,
		accessLogRepo: accessLogRepo,
	}
}

// GetOrCreate returns the user for the Telegram ID, creating it if needed
func (u *UserFlowImpl) GetOrCreate(ctx context.Context, telegramID int64, username *string) (*models.User, error) {
	user, err := u.userRepo.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, ErrUserBanned
	}
	_ = logAccess(ctx, u.accessLogRepo, user.ID, models.AccessActionStart)
	return user, nil
}

// ByTelegramID looks up a user without creating one
func (u *UserFlowImpl) ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := u.userRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// AccessHistory returns the user's recorded actions, newest first
func (u *UserFlowImpl) AccessHistory(ctx context.Context, userID uint, limit, offset int) ([]*models.AccessLog, error) {
	return u.accessLogRepo.ListByUser(ctx, userID, limit, offset)
}
