package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/sellers"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// GormSellerRepository implements sellers.Repository using GORM
type GormSellerRepository struct {
	db *gorm.DB
}

// NewGormSellerRepository creates a new GormSellerRepository
func NewGormSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// FindByCode finds a seller by its (code, marketplace) pair
func (r *GormSellerRepository) FindByCode(ctx context.Context, code string, marketplace feed.Marketplace) (*sellers.Seller, error) {
	var seller sellers.Seller
	err := r.db.WithContext(ctx).
		Where("code = ? AND marketplace = ?", code, marketplace).
		First(&seller).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &seller, nil
}

// FindAll returns every seller account
func (r *GormSellerRepository) FindAll(ctx context.Context) ([]sellers.Seller, error) {
	var items []sellers.Seller
	err := r.db.WithContext(ctx).Order("code ASC").Find(&items).Error
	return items, err
}

// FindEnabled returns the sellers included in scheduled polls
func (r *GormSellerRepository) FindEnabled(ctx context.Context) ([]sellers.Seller, error) {
	var items []sellers.Seller
	err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("code ASC").Find(&items).Error
	return items, err
}

// Save creates or updates a seller account
func (r *GormSellerRepository) Save(ctx context.Context, seller *sellers.Seller) error {
	return r.db.WithContext(ctx).Save(seller).Error
}
