package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Canonical Records
// ---------------------------------------------------------------------------
// The canonical shapes carry exactly the synchronized fields of each entity.
// They are the normalizer's output and the reconciler's input; workflow
// fields never appear here because the feed does not own them.

// Address is a shipping address as reported by the marketplace
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// CanonicalLine is a normalized order line item
type CanonicalLine struct {
	// ItemID is the marketplace listing/item id
	ItemID string
	// SKU is the seller's SKU, empty when the marketplace has none
	SKU string
	// Title is the listing title at sale time
	Title string
	// Quantity is the ordered quantity
	Quantity int
	// UnitPrice is the per-unit sale price
	UnitPrice decimal.Decimal
}

// CanonicalRefund is a normalized refund entry on an order
type CanonicalRefund struct {
	// RefundID is the marketplace refund id
	RefundID string
	// Amount is the refunded amount
	Amount decimal.Decimal
	// Reason is the marketplace-reported reason, may be empty
	Reason string
	// RefundedAt is when the refund was issued
	RefundedAt time.Time
}

// CanonicalOrder is the normalized form of a marketplace order.
// Identity is (Marketplace, OrderID); the pair is immutable once created.
type CanonicalOrder struct {
	OrderID     string
	Marketplace Marketplace
	SellerCode  string

	BuyerID   string
	BuyerName string
	Lines     []CanonicalLine

	// Monetary breakdown at two-decimal precision
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Fees     decimal.Decimal

	// SoldAt is the marketplace sale timestamp, at feed granularity
	SoldAt time.Time
	// ShipBy is the promised ship-by date, nil when the feed omits it
	ShipBy *time.Time

	Cancelled      bool
	Refunds        []CanonicalRefund
	TrackingNumber string
	ShipTo         Address
}

// CanonicalReturn is the normalized form of a marketplace return.
// Identity is (Marketplace, ReturnID); OrderID is a weak reference used
// for lookup only.
type CanonicalReturn struct {
	ReturnID    string
	Marketplace Marketplace
	SellerCode  string
	OrderID     string

	Status       string
	Reason       string
	RefundAmount decimal.Decimal
	OpenedAt     time.Time
}

// CanonicalMessage is the normalized form of a buyer/seller message.
// Identity is (thread key, MessageID); messages are append-only.
type CanonicalMessage struct {
	MessageID   string
	Marketplace Marketplace
	SellerCode  string

	// OrderID is set when the conversation is attached to an order
	OrderID string
	BuyerID string
	// ItemID is the listing the conversation started from, for pre-sale
	// threads without an order
	ItemID string

	Body    string
	Inbound bool
	SentAt  time.Time
}

// ThreadKey derives the conversation key: the order id when present,
// otherwise the (seller, buyer, item) composite.
func (m CanonicalMessage) ThreadKey() string {
	if m.OrderID != "" {
		return m.OrderID
	}
	return m.SellerCode + "|" + m.BuyerID + "|" + m.ItemID
}
