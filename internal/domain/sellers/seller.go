package sellers

import (
	"context"
	"strings"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// Seller is a marketplace seller account synchronized by this service
type Seller struct {
	shared.BaseEntity
	// Code is the seller's marketplace account handle, unique per marketplace
	Code        string           `gorm:"size:64;uniqueIndex:idx_sellers_code_marketplace;not null"`
	Marketplace feed.Marketplace `gorm:"size:16;uniqueIndex:idx_sellers_code_marketplace;not null"`
	DisplayName string           `gorm:"size:200"`
	// Enabled sellers are included in scheduled polls
	Enabled bool `gorm:"not null;default:true"`
	// CredentialRef names the feed credential entry for this account;
	// credentials themselves never live in this table
	CredentialRef string `gorm:"size:200"`
}

// TableName returns the sellers table name
func (Seller) TableName() string {
	return "sellers"
}

// NewSeller creates a new seller account entry
func NewSeller(code string, marketplace feed.Marketplace, displayName string) (*Seller, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Seller code cannot be empty")
	}
	if !marketplace.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown marketplace: "+marketplace.String())
	}
	return &Seller{
		BaseEntity:  shared.NewBaseEntity(),
		Code:        code,
		Marketplace: marketplace,
		DisplayName: displayName,
		Enabled:     true,
	}, nil
}

// Repository persists seller accounts
type Repository interface {
	FindByCode(ctx context.Context, code string, marketplace feed.Marketplace) (*Seller, error)
	FindAll(ctx context.Context) ([]Seller, error)
	FindEnabled(ctx context.Context) ([]Seller, error)
	Save(ctx context.Context, seller *Seller) error
}
