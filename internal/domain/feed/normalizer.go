package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------
// The normalizer maps an opaque raw feed payload into the canonical shape.
// Missing optional sub-structures become empty defaults; only a missing or
// malformed identity is fatal, and only for that single record.

// NormalizationError indicates a single raw record could not be normalized.
// It aborts that record, never the batch.
type NormalizationError struct {
	Kind   RecordKind
	Reason string
}

// Error implements the error interface
func (e *NormalizationError) Error() string {
	return fmt.Sprintf("feed: cannot normalize %s record: %s", e.Kind, e.Reason)
}

func normalizationErr(kind RecordKind, format string, args ...interface{}) error {
	return &NormalizationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// money precision used across the sync pipeline
const moneyPlaces = 2

// rawOrder is the wire shape of an order payload. Every field except the
// identity is optional.
type rawOrder struct {
	OrderID   string           `json:"order_id"`
	BuyerID   string           `json:"buyer_id"`
	Buyer     string           `json:"buyer_name"`
	Subtotal  *decimal.Decimal `json:"subtotal"`
	Shipping  *decimal.Decimal `json:"shipping"`
	Tax       *decimal.Decimal `json:"tax"`
	Discount  *decimal.Decimal `json:"discount"`
	Fees      *decimal.Decimal `json:"transaction_fees"`
	SoldAt    *time.Time       `json:"sold_at"`
	ShipBy    *time.Time       `json:"ship_by"`
	Cancelled bool             `json:"cancelled"`
	Tracking  string           `json:"tracking_number"`
	Lines     []rawLine        `json:"line_items"`
	Refunds   []rawRefund      `json:"refunds"`
	ShipTo    *rawAddress      `json:"shipping_address"`
}

type rawLine struct {
	ItemID    string           `json:"item_id"`
	SKU       string           `json:"sku"`
	Title     string           `json:"title"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type rawRefund struct {
	RefundID   string           `json:"refund_id"`
	Amount     *decimal.Decimal `json:"amount"`
	Reason     string           `json:"reason"`
	RefundedAt *time.Time       `json:"refunded_at"`
}

type rawAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type rawReturn struct {
	ReturnID     string           `json:"return_id"`
	OrderID      string           `json:"order_id"`
	Status       string           `json:"status"`
	Reason       string           `json:"reason"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
	OpenedAt     *time.Time       `json:"opened_at"`
}

type rawMessage struct {
	MessageID string     `json:"message_id"`
	OrderID   string     `json:"order_id"`
	BuyerID   string     `json:"buyer_id"`
	ItemID    string     `json:"item_id"`
	Body      string     `json:"body"`
	Inbound   bool       `json:"inbound"`
	SentAt    *time.Time `json:"sent_at"`
}

func moneyOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(moneyPlaces)
}

// PeekRecordID extracts just the identity from a raw record without full
// normalization, for cheap pre-filtering and failure reporting.
func PeekRecordID(rec RawRecord) (string, error) {
	var probe struct {
		OrderID   string `json:"order_id"`
		ReturnID  string `json:"return_id"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(rec.Payload, &probe); err != nil {
		return "", normalizationErr(rec.Kind, "malformed payload: %v", err)
	}
	var id string
	switch rec.Kind {
	case RecordKindOrder:
		id = probe.OrderID
	case RecordKindReturn:
		id = probe.ReturnID
	case RecordKindMessage:
		id = probe.MessageID
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", normalizationErr(rec.Kind, "record identity missing")
	}
	return id, nil
}

// NormalizeOrder maps a raw order payload into a CanonicalOrder
func NormalizeOrder(marketplace Marketplace, sellerCode string, payload json.RawMessage) (CanonicalOrder, error) {
	var raw rawOrder
	if err := json.Unmarshal(payload, &raw); err != nil {
		return CanonicalOrder{}, normalizationErr(RecordKindOrder, "malformed payload: %v", err)
	}
	if strings.TrimSpace(raw.OrderID) == "" {
		return CanonicalOrder{}, normalizationErr(RecordKindOrder, "order identity missing")
	}

	order := CanonicalOrder{
		OrderID:        strings.TrimSpace(raw.OrderID),
		Marketplace:    marketplace,
		SellerCode:     sellerCode,
		BuyerID:        raw.BuyerID,
		BuyerName:      raw.Buyer,
		Subtotal:       moneyOrZero(raw.Subtotal),
		Shipping:       moneyOrZero(raw.Shipping),
		Tax:            moneyOrZero(raw.Tax),
		Discount:       moneyOrZero(raw.Discount),
		Fees:           moneyOrZero(raw.Fees),
		Cancelled:      raw.Cancelled,
		TrackingNumber: raw.Tracking,
		ShipBy:         raw.ShipBy,
		Lines:          make([]CanonicalLine, 0, len(raw.Lines)),
		Refunds:        make([]CanonicalRefund, 0, len(raw.Refunds)),
	}
	if raw.SoldAt != nil {
		order.SoldAt = *raw.SoldAt
	}
	if raw.ShipTo != nil {
		order.ShipTo = Address{
			Name:       raw.ShipTo.Name,
			Line1:      raw.ShipTo.Line1,
			Line2:      raw.ShipTo.Line2,
			City:       raw.ShipTo.City,
			Region:     raw.ShipTo.Region,
			PostalCode: raw.ShipTo.PostalCode,
			Country:    raw.ShipTo.Country,
		}
	}
	for _, l := range raw.Lines {
		order.Lines = append(order.Lines, CanonicalLine{
			ItemID:    l.ItemID,
			SKU:       l.SKU,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: moneyOrZero(l.UnitPrice),
		})
	}
	for _, r := range raw.Refunds {
		refund := CanonicalRefund{
			RefundID: r.RefundID,
			Amount:   moneyOrZero(r.Amount),
			Reason:   r.Reason,
		}
		if r.RefundedAt != nil {
			refund.RefundedAt = *r.RefundedAt
		}
		order.Refunds = append(order.Refunds, refund)
	}
	return order, nil
}

// NormalizeReturn maps a raw return payload into a CanonicalReturn
func NormalizeReturn(marketplace Marketplace, sellerCode string, payload json.RawMessage) (CanonicalReturn, error) {
	var raw rawReturn
	if err := json.Unmarshal(payload, &raw); err != nil {
		return CanonicalReturn{}, normalizationErr(RecordKindReturn, "malformed payload: %v", err)
	}
	if strings.TrimSpace(raw.ReturnID) == "" {
		return CanonicalReturn{}, normalizationErr(RecordKindReturn, "return identity missing")
	}

	ret := CanonicalReturn{
		ReturnID:     strings.TrimSpace(raw.ReturnID),
		Marketplace:  marketplace,
		SellerCode:   sellerCode,
		OrderID:      raw.OrderID,
		Status:       raw.Status,
		Reason:       raw.Reason,
		RefundAmount: moneyOrZero(raw.RefundAmount),
	}
	if raw.OpenedAt != nil {
		ret.OpenedAt = *raw.OpenedAt
	}
	return ret, nil
}

// NormalizeMessage maps a raw message payload into a CanonicalMessage
func NormalizeMessage(marketplace Marketplace, sellerCode string, payload json.RawMessage) (CanonicalMessage, error) {
	var raw rawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return CanonicalMessage{}, normalizationErr(RecordKindMessage, "malformed payload: %v", err)
	}
	if strings.TrimSpace(raw.MessageID) == "" {
		return CanonicalMessage{}, normalizationErr(RecordKindMessage, "message identity missing")
	}

	msg := CanonicalMessage{
		MessageID:   strings.TrimSpace(raw.MessageID),
		Marketplace: marketplace,
		SellerCode:  sellerCode,
		OrderID:     raw.OrderID,
		BuyerID:     raw.BuyerID,
		ItemID:      raw.ItemID,
		Body:        raw.Body,
		Inbound:     raw.Inbound,
	}
	if raw.SentAt != nil {
		msg.SentAt = *raw.SentAt
	}
	return msg, nil
}
