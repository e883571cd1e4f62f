package returns

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// WorksheetStatus is the operator-owned workflow state of a return
type WorksheetStatus string

const (
	WorksheetOpen     WorksheetStatus = "OPEN"
	WorksheetAttended WorksheetStatus = "ATTENDED"
	WorksheetResolved WorksheetStatus = "RESOLVED"
)

// IsValid returns true if the status is a valid WorksheetStatus
func (s WorksheetStatus) IsValid() bool {
	switch s {
	case WorksheetOpen, WorksheetAttended, WorksheetResolved:
		return true
	}
	return false
}

// String returns the string representation of WorksheetStatus
func (s WorksheetStatus) String() string {
	return string(s)
}

// Return is the canonical return record. Identity is
// (Marketplace, ReturnID); OrderID is a weak reference to the originating
// order, used for lookup only. Status, reason and refund amount are
// synchronized from the feed; the worksheet status is operator-owned.
type Return struct {
	ReturnID    string           `gorm:"size:64;primaryKey"`
	Marketplace feed.Marketplace `gorm:"size:16;primaryKey"`
	SellerCode  string           `gorm:"size:64;index;not null"`
	OrderID     string           `gorm:"size:64;index"`

	// Synchronized fields
	Status       string          `gorm:"size:50"`
	Reason       string          `gorm:"size:500"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(12,2)"`
	OpenedAt     time.Time       `gorm:"index;not null"`

	// Workflow field
	WorksheetStatus WorksheetStatus `gorm:"size:20;not null;default:'OPEN'"`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the returns table name
func (Return) TableName() string {
	return "returns"
}

// NewFromCanonical creates a return from its first sighting in the feed
func NewFromCanonical(in feed.CanonicalReturn) *Return {
	now := time.Now()
	r := &Return{
		ReturnID:        in.ReturnID,
		Marketplace:     in.Marketplace,
		SellerCode:      in.SellerCode,
		OrderID:         in.OrderID,
		WorksheetStatus: WorksheetOpen,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.ApplySynced(in)
	return r
}

// ApplySynced overwrites the synchronized fields from the canonical record
func (r *Return) ApplySynced(in feed.CanonicalReturn) {
	r.OrderID = in.OrderID
	r.Status = in.Status
	r.Reason = in.Reason
	r.RefundAmount = in.RefundAmount
	r.OpenedAt = in.OpenedAt
	r.UpdatedAt = time.Now()
}

// SetWorksheetStatus sets the operator worksheet status
func (r *Return) SetWorksheetStatus(s WorksheetStatus) error {
	if !s.IsValid() {
		return shared.NewDomainError("VALIDATION", "Unknown worksheet status: "+string(s))
	}
	r.WorksheetStatus = s
	r.UpdatedAt = time.Now()
	return nil
}

// Repository persists return records; the sync/workflow write split follows
// the orders repository.
type Repository interface {
	FindByID(ctx context.Context, marketplace feed.Marketplace, returnID string) (*Return, error)
	FindByOrderID(ctx context.Context, marketplace feed.Marketplace, orderID string) ([]Return, error)
	Create(ctx context.Context, ret *Return) error
	SaveSynced(ctx context.Context, ret *Return) error
	UpdateWorksheetStatus(ctx context.Context, marketplace feed.Marketplace, returnID string, status WorksheetStatus) error
	FindAll(ctx context.Context, filter shared.Filter) ([]Return, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Delete(ctx context.Context, marketplace feed.Marketplace, returnID string) error
}
