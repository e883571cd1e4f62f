package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Workflow enums
// ---------------------------------------------------------------------------

// MessagingStatus tracks the buyer-communication workflow on an order
type MessagingStatus string

const (
	MessagingNotStarted MessagingStatus = "NOT_STARTED"
	MessagingOngoing    MessagingStatus = "ONGOING"
	MessagingResolved   MessagingStatus = "RESOLVED"
)

// IsValid returns true if the status is a valid MessagingStatus
func (s MessagingStatus) IsValid() bool {
	switch s {
	case MessagingNotStarted, MessagingOngoing, MessagingResolved:
		return true
	}
	return false
}

// String returns the string representation of MessagingStatus
func (s MessagingStatus) String() string {
	return string(s)
}

// ItemStatus tracks the fulfillment-issue workflow on an order
type ItemStatus string

const (
	ItemStatusNone            ItemStatus = "NONE"
	ItemStatusOutOfStock      ItemStatus = "OUT_OF_STOCK"
	ItemStatusDelayedDelivery ItemStatus = "DELAYED_DELIVERY"
	ItemStatusLabelCreated    ItemStatus = "LABEL_CREATED"
	ItemStatusINR             ItemStatus = "INR"
	ItemStatusResolved        ItemStatus = "RESOLVED"
	ItemStatusOther           ItemStatus = "OTHER"
)

// IsValid returns true if the status is a valid ItemStatus
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusNone, ItemStatusOutOfStock, ItemStatusDelayedDelivery,
		ItemStatusLabelCreated, ItemStatusINR, ItemStatusResolved, ItemStatusOther:
		return true
	}
	return false
}

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Workflow fields
// ---------------------------------------------------------------------------

// WorkflowField names an operator-editable field on an order. Synchronized
// field names are rejected with InvalidField at the store boundary.
type WorkflowField string

const (
	FieldMessagingStatus WorkflowField = "messagingStatus"
	FieldItemStatus      WorkflowField = "itemStatus"
	FieldNotes           WorkflowField = "notes"
	FieldAdFeeOverride   WorkflowField = "adFeeOverride"
)

// IsValid returns true if the field is an operator-editable order field
func (f WorkflowField) IsValid() bool {
	switch f {
	case FieldMessagingStatus, FieldItemStatus, FieldNotes, FieldAdFeeOverride:
		return true
	}
	return false
}

// Column returns the storage column backing the workflow field. Workflow
// writes update exactly this column so concurrent edits to different
// workflow fields on the same record never clobber each other.
func (f WorkflowField) Column() string {
	switch f {
	case FieldMessagingStatus:
		return "messaging_status"
	case FieldItemStatus:
		return "item_status"
	case FieldNotes:
		return "notes"
	case FieldAdFeeOverride:
		return "ad_fee_override"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Order aggregate
// ---------------------------------------------------------------------------

// OrderLine is a synchronized order line item
type OrderLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     string          `gorm:"size:64;index:idx_order_lines_order"`
	Marketplace string          `gorm:"size:16;index:idx_order_lines_order"`
	ItemID      string          `gorm:"size:64"`
	SKU         string          `gorm:"size:64"`
	Title       string          `gorm:"size:500"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)"`
}

// OrderRefund is a synchronized refund entry on an order
type OrderRefund struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     string          `gorm:"size:64;index:idx_order_refunds_order"`
	Marketplace string          `gorm:"size:16;index:idx_order_refunds_order"`
	RefundID    string          `gorm:"size:64"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	Reason      string          `gorm:"size:500"`
	RefundedAt  time.Time
}

// Order is the canonical order record. Identity is (Marketplace, OrderID)
// and is immutable once created. Fields split into two ownership classes:
// synchronized fields are overwritten on every successful poll; workflow
// fields are operator-owned and a sync write never touches them.
type Order struct {
	OrderID     string           `gorm:"size:64;primaryKey"`
	Marketplace feed.Marketplace `gorm:"size:16;primaryKey"`
	SellerCode  string           `gorm:"size:64;index;not null"`

	// Synchronized fields (truth source: the marketplace feed)
	BuyerID        string          `gorm:"size:64"`
	BuyerName      string          `gorm:"size:200;index"`
	Lines          []OrderLine     `gorm:"foreignKey:OrderID,Marketplace;references:OrderID,Marketplace"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Shipping       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Tax            decimal.Decimal `gorm:"type:decimal(12,2)"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Fees           decimal.Decimal `gorm:"type:decimal(12,2)"`
	SoldAt         time.Time       `gorm:"index;not null"`
	ShipBy         *time.Time
	Cancelled      bool
	Refunds        []OrderRefund `gorm:"foreignKey:OrderID,Marketplace;references:OrderID,Marketplace"`
	TrackingNumber string        `gorm:"size:100"`
	ShipToName     string        `gorm:"size:200"`
	ShipToLine1    string        `gorm:"size:300"`
	ShipToLine2    string        `gorm:"size:300"`
	ShipToCity     string        `gorm:"size:100"`
	ShipToRegion   string        `gorm:"size:100"`
	ShipToPostal   string        `gorm:"size:20"`
	ShipToCountry  string        `gorm:"size:2"`

	// Workflow fields (truth source: the operator)
	MessagingStatus MessagingStatus     `gorm:"size:20;not null;default:'NOT_STARTED'"`
	ItemStatus      ItemStatus          `gorm:"size:20;not null;default:'NONE'"`
	Notes           string              `gorm:"type:text"`
	AdFeeOverride   decimal.NullDecimal `gorm:"type:decimal(12,2)"`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the orders table name
func (Order) TableName() string {
	return "orders"
}

// NewFromCanonical creates an order from its first sighting in the feed,
// with every workflow field at its default value.
func NewFromCanonical(in feed.CanonicalOrder) *Order {
	now := time.Now()
	o := &Order{
		OrderID:         in.OrderID,
		Marketplace:     in.Marketplace,
		SellerCode:      in.SellerCode,
		MessagingStatus: MessagingNotStarted,
		ItemStatus:      ItemStatusNone,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.ApplySynced(in)
	return o
}

// ApplySynced overwrites every synchronized field from the canonical record.
// Workflow fields are not visible from here.
func (o *Order) ApplySynced(in feed.CanonicalOrder) {
	o.BuyerID = in.BuyerID
	o.BuyerName = in.BuyerName
	o.Subtotal = in.Subtotal
	o.Shipping = in.Shipping
	o.Tax = in.Tax
	o.Discount = in.Discount
	o.Fees = in.Fees
	o.SoldAt = in.SoldAt
	o.ShipBy = in.ShipBy
	o.Cancelled = in.Cancelled
	o.TrackingNumber = in.TrackingNumber
	o.ShipToName = in.ShipTo.Name
	o.ShipToLine1 = in.ShipTo.Line1
	o.ShipToLine2 = in.ShipTo.Line2
	o.ShipToCity = in.ShipTo.City
	o.ShipToRegion = in.ShipTo.Region
	o.ShipToPostal = in.ShipTo.PostalCode
	o.ShipToCountry = in.ShipTo.Country

	lines := make([]OrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, OrderLine{
			ID:          uuid.New(),
			OrderID:     o.OrderID,
			Marketplace: string(o.Marketplace),
			ItemID:      l.ItemID,
			SKU:         l.SKU,
			Title:       l.Title,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	o.Lines = lines

	refunds := make([]OrderRefund, 0, len(in.Refunds))
	for _, r := range in.Refunds {
		refunds = append(refunds, OrderRefund{
			ID:          uuid.New(),
			OrderID:     o.OrderID,
			Marketplace: string(o.Marketplace),
			RefundID:    r.RefundID,
			Amount:      r.Amount,
			Reason:      r.Reason,
			RefundedAt:  r.RefundedAt,
		})
	}
	o.Refunds = refunds
	o.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Workflow writes
// ---------------------------------------------------------------------------

// SetMessagingStatus sets the messaging workflow status
func (o *Order) SetMessagingStatus(s MessagingStatus) error {
	if !s.IsValid() {
		return shared.NewDomainError("VALIDATION", "Unknown messaging status: "+string(s))
	}
	o.MessagingStatus = s
	o.UpdatedAt = time.Now()
	return nil
}

// SetItemStatus sets the item workflow status. Moving into the terminal
// RESOLVED state requires non-empty notes at transition time; the status
// is left unchanged otherwise.
func (o *Order) SetItemStatus(s ItemStatus) error {
	if !s.IsValid() {
		return shared.NewDomainError("VALIDATION", "Unknown item status: "+string(s))
	}
	if s == ItemStatusResolved && strings.TrimSpace(o.Notes) == "" {
		return shared.NewDomainError("VALIDATION", "Resolving an item requires non-empty notes")
	}
	o.ItemStatus = s
	o.UpdatedAt = time.Now()
	return nil
}

// SetNotes sets the free-text fulfillment notes
func (o *Order) SetNotes(notes string) {
	o.Notes = notes
	o.UpdatedAt = time.Now()
}

// SetAdFeeOverride sets or clears the ad-fee override amount
func (o *Order) SetAdFeeOverride(amount *decimal.Decimal) error {
	if amount == nil {
		o.AdFeeOverride = decimal.NullDecimal{}
		o.UpdatedAt = time.Now()
		return nil
	}
	if amount.IsNegative() {
		return shared.NewDomainError("VALIDATION", "Ad-fee override cannot be negative")
	}
	o.AdFeeOverride = decimal.NewNullDecimal(amount.Round(2))
	o.UpdatedAt = time.Now()
	return nil
}

// WorkflowValue returns the current value of a workflow field as it is
// persisted, for field-granular column updates.
func (o *Order) WorkflowValue(f WorkflowField) (interface{}, error) {
	switch f {
	case FieldMessagingStatus:
		return string(o.MessagingStatus), nil
	case FieldItemStatus:
		return string(o.ItemStatus), nil
	case FieldNotes:
		return o.Notes, nil
	case FieldAdFeeOverride:
		return o.AdFeeOverride, nil
	}
	return nil, shared.ErrInvalidField
}
