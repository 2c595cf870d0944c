package repository

import (
	"context"
	"errors"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByTelegramID finds a user by Telegram ID
func (r *UserRepositoryImpl) ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	err := db.Where("telegram_id = ?", telegramID).Last(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreate returns the user for a Telegram ID, creating it lazily on
// first interaction. A concurrent first interaction may race on the unique
// telegram_id index; the loser re-reads the winner's row.
func (r *UserRepositoryImpl) GetOrCreate(ctx context.Context, telegramID int64, username *string) (*models.User, error) {
	user, err := r.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if username != nil && (user.Username == nil || *user.Username != *username) {
			err := r.getDB(ctx).Model(user).
				Updates(map[string]any{"username": *username, "updated_at": utils.UTCNow()}).Error
			if err != nil {
				return nil, err
			}
			user.Username = username
		}
		return user, nil
	}

	user = &models.User{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  utils.UTCNow(),
		UpdatedAt:  utils.UTCNow(),
	}
	if err := r.Save(ctx, user); err != nil {
		if IsUniqueViolation(err) {
			return r.ByTelegramID(ctx, telegramID)
		}
		return nil, err
	}
	return user, nil
}

// ApplyCredit increases the cached balance unconditionally
func (r *UserRepositoryImpl) ApplyCredit(ctx context.Context, userID uint, amountCents int64) error {
	db := r.getDB(ctx)
	res := db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"balance_cents": gorm.Expr("balance_cents + ?", amountCents),
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApplyDebit decreases the cached balance, guarded at the database so
// concurrent debits can never drive a balance negative. Returns false when
// the guard rejects the debit.
func (r *UserRepositoryImpl) ApplyDebit(ctx context.Context, userID uint, amountCents int64, incrementSMS bool) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"balance_cents":     gorm.Expr("balance_cents - ?", amountCents),
		"total_spent_cents": gorm.Expr("total_spent_cents + ?", amountCents),
		"updated_at":        utils.UTCNow(),
	}
	if incrementSMS {
		updates["total_sms_received"] = gorm.Expr("total_sms_received + 1")
	}

	res := db.Model(&models.User{}).
		Where("id = ? AND balance_cents >= ?", userID, amountCents).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetAdmin flips the admin flag; reports whether a user row was updated
func (r *UserRepositoryImpl) SetAdmin(ctx context.Context, telegramID int64, isAdmin bool) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{"is_admin": isAdmin, "updated_at": utils.UTCNow()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetBanned flips the banned flag; reports whether a user row was updated
func (r *UserRepositoryImpl) SetBanned(ctx context.Context, telegramID int64, isBanned bool) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{"is_banned": isBanned, "updated_at": utils.UTCNow()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ByFilter retrieves users based on filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)
	var users []*models.User

	query := r.applyFilter(db.Model(&models.User{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of users matching the filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := r.applyFilter(db.Model(&models.User{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TelegramID != nil {
		query = query.Where("telegram_id = ?", *filter.TelegramID)
	}
	if filter.Username != nil {
		query = query.Where("username = ?", *filter.Username)
	}
	if filter.IsAdmin != nil {
		query = query.Where("is_admin = ?", *filter.IsAdmin)
	}
	if filter.IsBanned != nil {
		query = query.Where("is_banned = ?", *filter.IsBanned)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
