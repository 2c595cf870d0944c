package repository

import (
	"context"

	"github.com/numbay/numbay/models"
	"gorm.io/gorm"
)

// AccessLogRepositoryImpl implements AccessLogRepository interface
type AccessLogRepositoryImpl struct {
	*BaseRepository[models.AccessLog, models.AccessLogFilter]
}

// NewAccessLogRepository creates a new access log repository
func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &AccessLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AccessLog, models.AccessLogFilter](db),
	}
}

// ListByUser returns a user's actions, newest first
func (r *AccessLogRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AccessLog, error) {
	db := r.getDB(ctx)
	var logs []*models.AccessLog
	query := db.Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ByFilter retrieves access logs based on filter criteria
func (r *AccessLogRepositoryImpl) ByFilter(ctx context.Context, filter models.AccessLogFilter, orderBy string, limit, offset int) ([]*models.AccessLog, error) {
	db := r.getDB(ctx)
	var logs []*models.AccessLog

	query := r.applyFilter(db.Model(&models.AccessLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Count returns the number of access logs matching the filter
func (r *AccessLogRepositoryImpl) Count(ctx context.Context, filter models.AccessLogFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := r.applyFilter(db.Model(&models.AccessLog{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the filter to the query
func (r *AccessLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccessLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.After != nil {
		query = query.Where("timestamp > ?", *filter.After)
	}
	if filter.Before != nil {
		query = query.Where("timestamp < ?", *filter.Before)
	}
	return query
}
