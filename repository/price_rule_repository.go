package repository

import (
	"context"
	"errors"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRuleRepositoryImpl implements PriceRuleRepository interface
type PriceRuleRepositoryImpl struct {
	db *gorm.DB
}

// NewPriceRuleRepository creates a new price rule repository
func NewPriceRuleRepository(db *gorm.DB) PriceRuleRepository {
	return &PriceRuleRepositoryImpl{db: db}
}

func (r *PriceRuleRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByRangeID finds the one price rule for a range, nil when unset
func (r *PriceRuleRepositoryImpl) ByRangeID(ctx context.Context, rangeID string) (*models.PriceRule, error) {
	db := r.getDB(ctx)
	var rule models.PriceRule
	err := db.Where("range_id = ?", rangeID).Last(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// Upsert sets or replaces the range's price. One active price per range,
// no history.
func (r *PriceRuleRepositoryImpl) Upsert(ctx context.Context, rule *models.PriceRule) error {
	db := r.getDB(ctx)
	rule.CreatedAt = utils.UTCNow()
	rule.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "range_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"price_cents": rule.PriceCents,
			"updated_at":  rule.UpdatedAt,
		}),
	}).Create(rule).Error
}

// DeleteByRangeID removes a range's price rule, restoring the fallback price
func (r *PriceRuleRepositoryImpl) DeleteByRangeID(ctx context.Context, rangeID string) error {
	db := r.getDB(ctx)
	return db.Where("range_id = ?", rangeID).Delete(&models.PriceRule{}).Error
}
