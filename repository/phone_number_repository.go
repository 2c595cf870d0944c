package repository

import (
	"context"

	"github.com/numbay/numbay/models"
	"gorm.io/gorm"
)

// PhoneNumberRepositoryImpl implements PhoneNumberRepository interface
type PhoneNumberRepositoryImpl struct {
	*BaseRepository[models.PhoneNumber, models.PhoneNumberFilter]
}

// NewPhoneNumberRepository creates a new phone number repository
func NewPhoneNumberRepository(db *gorm.DB) PhoneNumberRepository {
	return &PhoneNumberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PhoneNumber, models.PhoneNumberFilter](db),
	}
}

// ByNumbers returns catalogued rows for any of the given dialable values
func (r *PhoneNumberRepositoryImpl) ByNumbers(ctx context.Context, numbers []string) ([]*models.PhoneNumber, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)
	var rows []*models.PhoneNumber
	if err := db.Where("number IN ?", numbers).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AvailableByRange returns the range's numbers with no hold row of either
// kind. Inventory is consumed by temporary and permanent holds alike;
// only sweeping a temporary hold puts a number back.
func (r *PhoneNumberRepositoryImpl) AvailableByRange(ctx context.Context, rangeID string) ([]*models.PhoneNumber, error) {
	db := r.getDB(ctx)
	var rows []*models.PhoneNumber
	err := db.Where("range_id = ?", rangeID).
		Where("NOT EXISTS (SELECT 1 FROM holds WHERE holds.phone_number_id = phone_numbers.id)").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountAvailableByRange counts unheld numbers in a range
func (r *PhoneNumberRepositoryImpl) CountAvailableByRange(ctx context.Context, rangeID string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.PhoneNumber{}).
		Where("range_id = ?", rangeID).
		Where("NOT EXISTS (SELECT 1 FROM holds WHERE holds.phone_number_id = phone_numbers.id)").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByRange counts all catalogued numbers in a range
func (r *PhoneNumberRepositoryImpl) CountByRange(ctx context.Context, rangeID string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.PhoneNumber{}).Where("range_id = ?", rangeID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ByFilter retrieves phone numbers based on filter criteria
func (r *PhoneNumberRepositoryImpl) ByFilter(ctx context.Context, filter models.PhoneNumberFilter, orderBy string, limit, offset int) ([]*models.PhoneNumber, error) {
	db := r.getDB(ctx)
	var rows []*models.PhoneNumber

	query := r.applyFilter(db.Model(&models.PhoneNumber{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of phone numbers matching the filter
func (r *PhoneNumberRepositoryImpl) Count(ctx context.Context, filter models.PhoneNumberFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := r.applyFilter(db.Model(&models.PhoneNumber{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *PhoneNumberRepositoryImpl) applyFilter(query *gorm.DB, filter models.PhoneNumberFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.RangeID != nil {
		query = query.Where("range_id = ?", *filter.RangeID)
	}
	if filter.Number != nil {
		query = query.Where("number = ?", *filter.Number)
	}
	return query
}
