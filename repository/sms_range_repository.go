package repository

import (
	"context"
	"errors"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SMSRangeRepositoryImpl implements SMSRangeRepository interface
type SMSRangeRepositoryImpl struct {
	db *gorm.DB
}

// NewSMSRangeRepository creates a new range repository
func NewSMSRangeRepository(db *gorm.DB) SMSRangeRepository {
	return &SMSRangeRepositoryImpl{db: db}
}

func (r *SMSRangeRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID finds a range by its deterministic identifier
func (r *SMSRangeRepositoryImpl) ByID(ctx context.Context, id string) (*models.SMSRange, error) {
	db := r.getDB(ctx)
	var rng models.SMSRange
	err := db.Where("id = ?", id).Last(&rng).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rng, nil
}

// ByName finds a range by name
func (r *SMSRangeRepositoryImpl) ByName(ctx context.Context, name string) (*models.SMSRange, error) {
	return r.ByID(ctx, models.RangeIDFromName(name))
}

// Upsert inserts the range or refreshes an existing one. The identifier is
// derived from the name, so re-importing the same named range merges.
func (r *SMSRangeRepositoryImpl) Upsert(ctx context.Context, rng *models.SMSRange) error {
	db := r.getDB(ctx)
	if rng.ID == "" {
		rng.ID = models.RangeIDFromName(rng.Name)
	}
	rng.CreatedAt = utils.UTCNow()
	rng.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": rng.UpdatedAt}),
	}).Create(rng).Error
}

// Delete removes the range; numbers cascade away with it
func (r *SMSRangeRepositoryImpl) Delete(ctx context.Context, id string) error {
	db := r.getDB(ctx)
	res := db.Where("id = ?", id).Delete(&models.SMSRange{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns ranges ordered by name
func (r *SMSRangeRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.SMSRange, error) {
	db := r.getDB(ctx)
	var ranges []*models.SMSRange
	query := db.Model(&models.SMSRange{}).Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&ranges).Error; err != nil {
		return nil, err
	}
	return ranges, nil
}

// ListInventory returns per-range stock: total catalogued numbers and how
// many are free of holds of either kind.
func (r *SMSRangeRepositoryImpl) ListInventory(ctx context.Context) ([]*RangeInventory, error) {
	db := r.getDB(ctx)
	var rows []*RangeInventory
	err := db.Model(&models.SMSRange{}).
		Select(`sms_ranges.id AS range_id,
			sms_ranges.name AS name,
			COUNT(phone_numbers.id) AS total_numbers,
			COUNT(phone_numbers.id) - COUNT(holds.id) AS available`).
		Joins("LEFT JOIN phone_numbers ON phone_numbers.range_id = sms_ranges.id").
		Joins("LEFT JOIN holds ON holds.phone_number_id = phone_numbers.id").
		Group("sms_ranges.id, sms_ranges.name").
		Order("sms_ranges.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of ranges
func (r *SMSRangeRepositoryImpl) Count(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.SMSRange{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
