package persistence

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// GormMessageRepository implements messages.Repository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append stores a message unless its identity was already seen. The insert
// ignores primary key conflicts so re-delivered batches stay idempotent
// without a read-before-write.
func (r *GormMessageRepository) Append(ctx context.Context, msg *messages.Message) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(msg)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindThread returns a thread's messages ordered by sent time ascending
func (r *GormMessageRepository) FindThread(ctx context.Context, threadKey string) ([]messages.Message, error) {
	var items []messages.Message
	err := r.db.WithContext(ctx).
		Where("thread_key = ?", threadKey).
		Order("sent_at ASC").Order("message_id ASC").
		Find(&items).Error
	return items, err
}

// FindAll lists messages matching the filter
func (r *GormMessageRepository) FindAll(ctx context.Context, filter shared.Filter) ([]messages.Message, error) {
	var items []messages.Message
	err := r.applyFilter(r.db.WithContext(ctx).Model(&messages.Message{}), filter).Find(&items).Error
	return items, err
}

// Count counts messages matching the filter
func (r *GormMessageRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&messages.Message{}), filter).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag on a single message
func (r *GormMessageRepository) MarkRead(ctx context.Context, threadKey, messageID string, read bool) error {
	result := r.db.WithContext(ctx).
		Model(&messages.Message{}).
		Where("thread_key = ? AND message_id = ?", threadKey, messageID).
		Update("read", read)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := filter.OrderBy
	if orderBy == "" || orderBy == "sold_at" {
		orderBy = "sent_at"
	}
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir).Order("message_id ASC")
}

func (r *GormMessageRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(body) LIKE ?", pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "marketplace":
			query = query.Where("marketplace = ?", value)
		case "seller_code":
			query = query.Where("seller_code = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "read":
			query = query.Where("read = ?", value)
		case "sent_from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("sent_at >= ?", t)
			}
		}
	}
	return query
}
