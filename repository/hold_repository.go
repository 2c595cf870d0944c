package repository

import (
	"context"
	"errors"
	"time"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// HoldRepositoryImpl implements HoldRepository interface
type HoldRepositoryImpl struct {
	*BaseRepository[models.Hold, models.HoldFilter]
}

// NewHoldRepository creates a new hold repository
func NewHoldRepository(db *gorm.DB) HoldRepository {
	return &HoldRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Hold, models.HoldFilter](db),
	}
}

// ByUserAndNumber finds a user's hold on a dialable value
func (r *HoldRepositoryImpl) ByUserAndNumber(ctx context.Context, userID uint, number string) (*models.Hold, error) {
	db := r.getDB(ctx)
	var hold models.Hold
	err := db.Where("user_id = ? AND number = ?", userID, number).Last(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hold, nil
}

// ListByUser returns all holds of a user, oldest first
func (r *HoldRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Hold, error) {
	db := r.getDB(ctx)
	var holds []*models.Hold
	err := db.Where("user_id = ?", userID).Order("id ASC").Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}

// DeleteTemporaryByUser discards all of a user's temporary holds, returning
// their numbers to the available pool. Permanent holds are untouched.
func (r *HoldRepositoryImpl) DeleteTemporaryByUser(ctx context.Context, userID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("user_id = ? AND is_permanent = ?", userID, false).Delete(&models.Hold{})
	return res.RowsAffected, res.Error
}

// DeleteAllTemporary is the admin escape hatch: every temporary hold goes,
// regardless of poll state or age.
func (r *HoldRepositoryImpl) DeleteAllTemporary(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("is_permanent = ?", false).Delete(&models.Hold{})
	return res.RowsAffected, res.Error
}

// DeleteExpired reclaims temporary holds whose expiry clock (anchored at the
// first poll) passed the cutoff. Holds never polled have no clock and stay.
func (r *HoldRepositoryImpl) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("is_permanent = ? AND first_poll_time IS NOT NULL AND first_poll_time < ?", false, cutoff).
		Delete(&models.Hold{})
	return res.RowsAffected, res.Error
}

// SetFirstPollTime anchors the expiry clock exactly once
func (r *HoldRepositoryImpl) SetFirstPollTime(ctx context.Context, holdID uint, t time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Hold{}).
		Where("id = ? AND first_poll_time IS NULL", holdID).
		Updates(map[string]any{"first_poll_time": t, "updated_at": utils.UTCNow()}).Error
}

// PromoteIfTemporary performs the one-way temporary -> permanent flip. The
// guarded update serializes concurrent confirmations of the same hold: only
// one caller observes the flip.
func (r *HoldRepositoryImpl) PromoteIfTemporary(ctx context.Context, holdID uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Hold{}).
		Where("id = ? AND is_permanent = ?", holdID, false).
		Updates(map[string]any{"is_permanent": true, "updated_at": utils.UTCNow()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountTemporaryByRange counts outstanding temporary holds against a range
func (r *HoldRepositoryImpl) CountTemporaryByRange(ctx context.Context, rangeID string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Hold{}).
		Where("range_id = ? AND is_permanent = ?", rangeID, false).
		Count(&count).Error
	return count, err
}

// CountByKind returns how many temporary and permanent holds exist
func (r *HoldRepositoryImpl) CountByKind(ctx context.Context) (int64, int64, error) {
	db := r.getDB(ctx)
	var temporary, permanent int64
	if err := db.Model(&models.Hold{}).Where("is_permanent = ?", false).Count(&temporary).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&models.Hold{}).Where("is_permanent = ?", true).Count(&permanent).Error; err != nil {
		return 0, 0, err
	}
	return temporary, permanent, nil
}

// ByFilter retrieves holds based on filter criteria
func (r *HoldRepositoryImpl) ByFilter(ctx context.Context, filter models.HoldFilter, orderBy string, limit, offset int) ([]*models.Hold, error) {
	db := r.getDB(ctx)
	var holds []*models.Hold

	query := r.applyFilter(db.Model(&models.Hold{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// Count returns the number of holds matching the filter
func (r *HoldRepositoryImpl) Count(ctx context.Context, filter models.HoldFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := r.applyFilter(db.Model(&models.Hold{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *HoldRepositoryImpl) applyFilter(query *gorm.DB, filter models.HoldFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.PhoneNumberID != nil {
		query = query.Where("phone_number_id = ?", *filter.PhoneNumberID)
	}
	if filter.RangeID != nil {
		query = query.Where("range_id = ?", *filter.RangeID)
	}
	if filter.Number != nil {
		query = query.Where("number = ?", *filter.Number)
	}
	if filter.IsPermanent != nil {
		query = query.Where("is_permanent = ?", *filter.IsPermanent)
	}
	if filter.PolledBefore != nil {
		query = query.Where("first_poll_time IS NOT NULL AND first_poll_time < ?", *filter.PolledBefore)
	}
	return query
}
