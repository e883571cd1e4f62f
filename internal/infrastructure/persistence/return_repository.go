package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// GormReturnRepository implements returns.Repository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// FindByID finds a return by its natural identity
func (r *GormReturnRepository) FindByID(ctx context.Context, marketplace feed.Marketplace, returnID string) (*returns.Return, error) {
	var ret returns.Return
	err := r.db.WithContext(ctx).
		Where("marketplace = ? AND return_id = ?", marketplace, returnID).
		First(&ret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByOrderID lists the returns referencing an order
func (r *GormReturnRepository) FindByOrderID(ctx context.Context, marketplace feed.Marketplace, orderID string) ([]returns.Return, error) {
	var items []returns.Return
	err := r.db.WithContext(ctx).
		Where("marketplace = ? AND order_id = ?", marketplace, orderID).
		Order("opened_at DESC").
		Find(&items).Error
	return items, err
}

// Create inserts a first-sighting record
func (r *GormReturnRepository) Create(ctx context.Context, ret *returns.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

// SaveSynced overwrites the synchronized columns, version-guarded like the
// orders repository
func (r *GormReturnRepository) SaveSynced(ctx context.Context, ret *returns.Return) error {
	result := r.db.WithContext(ctx).
		Model(&returns.Return{}).
		Where("marketplace = ? AND return_id = ? AND version = ?",
			ret.Marketplace, ret.ReturnID, ret.Version).
		Updates(map[string]interface{}{
			"seller_code":   ret.SellerCode,
			"order_id":      ret.OrderID,
			"status":        ret.Status,
			"reason":        ret.Reason,
			"refund_amount": ret.RefundAmount,
			"opened_at":     ret.OpenedAt,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&returns.Return{}).
			Where("marketplace = ? AND return_id = ?", ret.Marketplace, ret.ReturnID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	ret.Version++
	return nil
}

// UpdateWorksheetStatus writes only the worksheet column
func (r *GormReturnRepository) UpdateWorksheetStatus(ctx context.Context, marketplace feed.Marketplace, returnID string, status returns.WorksheetStatus) error {
	result := r.db.WithContext(ctx).
		Model(&returns.Return{}).
		Where("marketplace = ? AND return_id = ?", marketplace, returnID).
		Updates(map[string]interface{}{"worksheet_status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindAll lists returns matching the filter
func (r *GormReturnRepository) FindAll(ctx context.Context, filter shared.Filter) ([]returns.Return, error) {
	var items []returns.Return
	err := r.applyFilter(r.db.WithContext(ctx).Model(&returns.Return{}), filter).Find(&items).Error
	return items, err
}

// Count counts returns matching the filter
func (r *GormReturnRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&returns.Return{}), filter).
		Count(&count).Error
	return count, err
}

// Delete removes a return by operator action
func (r *GormReturnRepository) Delete(ctx context.Context, marketplace feed.Marketplace, returnID string) error {
	result := r.db.WithContext(ctx).
		Where("marketplace = ? AND return_id = ?", marketplace, returnID).
		Delete(&returns.Return{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormReturnRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := filter.OrderBy
	if orderBy == "" || orderBy == "sold_at" {
		orderBy = "opened_at"
	}
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir).Order("return_id ASC")
}

func (r *GormReturnRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(return_id) LIKE ? OR LOWER(order_id) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "marketplace":
			query = query.Where("marketplace = ?", value)
		case "seller_code":
			query = query.Where("seller_code = ?", value)
		case "worksheet_status":
			query = query.Where("worksheet_status = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		}
	}
	return query
}
