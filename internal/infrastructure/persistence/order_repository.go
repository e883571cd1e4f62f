package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// GormOrderRepository implements orders.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its natural identity
func (r *GormOrderRepository) FindByID(ctx context.Context, marketplace feed.Marketplace, orderID string) (*orders.Order, error) {
	var order orders.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Refunds").
		Where("marketplace = ? AND order_id = ?", marketplace, orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// KnownIDs returns which of the given order ids already exist
func (r *GormOrderRepository) KnownIDs(ctx context.Context, marketplace feed.Marketplace, orderIDs []string) (map[string]bool, error) {
	if len(orderIDs) == 0 {
		return map[string]bool{}, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&orders.Order{}).
		Where("marketplace = ? AND order_id IN ?", marketplace, orderIDs).
		Pluck("order_id", &found).Error
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

// Create inserts a first-sighting record
func (r *GormOrderRepository) Create(ctx context.Context, order *orders.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// SaveSynced overwrites the synchronized columns of an existing record.
// The update is guarded by the version the record was read at; zero rows
// means another writer got there first and the caller must re-merge.
func (r *GormOrderRepository) SaveSynced(ctx context.Context, order *orders.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&orders.Order{}).
			Where("marketplace = ? AND order_id = ? AND version = ?",
				order.Marketplace, order.OrderID, order.Version).
			Updates(syncedColumns(order))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orders.Order{}).
				Where("marketplace = ? AND order_id = ?", order.Marketplace, order.OrderID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}

		// child collections are replaced wholesale on every sync write
		if err := tx.Where("marketplace = ? AND order_id = ?", order.Marketplace, order.OrderID).
			Delete(&orders.OrderLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("marketplace = ? AND order_id = ?", order.Marketplace, order.OrderID).
			Delete(&orders.OrderRefund{}).Error; err != nil {
			return err
		}
		if len(order.Lines) > 0 {
			if err := tx.Create(&order.Lines).Error; err != nil {
				return err
			}
		}
		if len(order.Refunds) > 0 {
			if err := tx.Create(&order.Refunds).Error; err != nil {
				return err
			}
		}
		order.Version++
		return nil
	})
}

// syncedColumns is the full synchronized column set. Workflow columns are
// deliberately absent; a sync write can never touch them.
func syncedColumns(order *orders.Order) map[string]interface{} {
	return map[string]interface{}{
		"seller_code":     order.SellerCode,
		"buyer_id":        order.BuyerID,
		"buyer_name":      order.BuyerName,
		"subtotal":        order.Subtotal,
		"shipping":        order.Shipping,
		"tax":             order.Tax,
		"discount":        order.Discount,
		"fees":            order.Fees,
		"sold_at":         order.SoldAt,
		"ship_by":         order.ShipBy,
		"cancelled":       order.Cancelled,
		"tracking_number": order.TrackingNumber,
		"ship_to_name":    order.ShipToName,
		"ship_to_line1":   order.ShipToLine1,
		"ship_to_line2":   order.ShipToLine2,
		"ship_to_city":    order.ShipToCity,
		"ship_to_region":  order.ShipToRegion,
		"ship_to_postal":  order.ShipToPostal,
		"ship_to_country": order.ShipToCountry,
		"version":         gorm.Expr("version + 1"),
		"updated_at":      time.Now(),
	}
}

// UpdateWorkflowField writes exactly one workflow column
func (r *GormOrderRepository) UpdateWorkflowField(ctx context.Context, marketplace feed.Marketplace, orderID string, field orders.WorkflowField, value interface{}) error {
	column := field.Column()
	if column == "" {
		return shared.ErrInvalidField
	}
	result := r.db.WithContext(ctx).
		Model(&orders.Order{}).
		Where("marketplace = ? AND order_id = ?", marketplace, orderID).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindAll lists orders matching the filter. The sort always ends on the
// order id so equal sold dates paginate deterministically.
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]orders.Order, error) {
	var items []orders.Order
	query := r.applyFilter(r.db.WithContext(ctx).Model(&orders.Order{}), filter)
	err := query.Preload("Lines").Preload("Refunds").Find(&items).Error
	return items, err
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&orders.Order{}), filter)
	err := query.Count(&count).Error
	return count, err
}

// Delete removes an order and its child rows
func (r *GormOrderRepository) Delete(ctx context.Context, marketplace feed.Marketplace, orderID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("marketplace = ? AND order_id = ?", marketplace, orderID).
			Delete(&orders.OrderLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("marketplace = ? AND order_id = ?", marketplace, orderID).
			Delete(&orders.OrderRefund{}).Error; err != nil {
			return err
		}
		result := tx.Where("marketplace = ? AND order_id = ?", marketplace, orderID).
			Delete(&orders.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "sold_at"
	}
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir).Order("order_id ASC")
}

func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(buyer_name) LIKE ? OR LOWER(order_id) LIKE ?", pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "marketplace":
			query = query.Where("marketplace = ?", value)
		case "seller_code":
			query = query.Where("seller_code = ?", value)
		case "messaging_status":
			query = query.Where("messaging_status = ?", value)
		case "item_status":
			query = query.Where("item_status = ?", value)
		case "cancelled":
			query = query.Where("cancelled = ?", value)
		case "sold_from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("sold_at >= ?", t)
			}
		case "sold_before":
			if t, ok := value.(time.Time); ok {
				query = query.Where("sold_at < ?", t)
			}
		}
	}
	return query
}
