package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/returns"
)

// ---------------------------------------------------------------------------
// Field diffing
// ---------------------------------------------------------------------------
// Diffs compare the stored record's synchronized fields against the incoming
// canonical record, field by field. Money compares at two-decimal precision
// and timestamps at feed granularity, so a record that round-trips through
// the normalizer unchanged produces an empty diff.

func diffOrder(stored *orders.Order, in feed.CanonicalOrder) []FieldChange {
	var changes []FieldChange

	appendStr := func(field, prev, cur string) {
		if prev != cur {
			changes = append(changes, FieldChange{Field: field, Previous: prev, Current: cur})
		}
	}

	appendStr("buyerId", stored.BuyerID, in.BuyerID)
	appendStr("buyerName", stored.BuyerName, in.BuyerName)
	appendStr("lineItems", renderOrderLines(stored.Lines), renderCanonicalLines(in.Lines))

	appendMoney := func(field string, prev, cur decimal.Decimal) {
		if !prev.Round(2).Equal(cur.Round(2)) {
			changes = append(changes, FieldChange{Field: field, Previous: renderMoney(prev), Current: renderMoney(cur)})
		}
	}
	appendMoney("subtotal", stored.Subtotal, in.Subtotal)
	appendMoney("shipping", stored.Shipping, in.Shipping)
	appendMoney("tax", stored.Tax, in.Tax)
	appendMoney("discount", stored.Discount, in.Discount)
	appendMoney("fees", stored.Fees, in.Fees)

	if !stored.SoldAt.Equal(in.SoldAt) {
		changes = append(changes, FieldChange{Field: "dateSold", Previous: renderTime(stored.SoldAt), Current: renderTime(in.SoldAt)})
	}
	if !timePtrEqual(stored.ShipBy, in.ShipBy) {
		changes = append(changes, FieldChange{Field: "shipBy", Previous: renderTimePtr(stored.ShipBy), Current: renderTimePtr(in.ShipBy)})
	}
	if stored.Cancelled != in.Cancelled {
		changes = append(changes, FieldChange{Field: "cancelled", Previous: renderBool(stored.Cancelled), Current: renderBool(in.Cancelled)})
	}
	appendStr("refunds", renderOrderRefunds(stored.Refunds), renderCanonicalRefunds(in.Refunds))
	appendStr("trackingNumber", stored.TrackingNumber, in.TrackingNumber)
	appendStr("shippingAddress", renderStoredAddress(stored), renderAddress(in.ShipTo))

	return changes
}

func diffReturn(stored *returns.Return, in feed.CanonicalReturn) []FieldChange {
	var changes []FieldChange

	appendStr := func(field, prev, cur string) {
		if prev != cur {
			changes = append(changes, FieldChange{Field: field, Previous: prev, Current: cur})
		}
	}

	appendStr("orderId", stored.OrderID, in.OrderID)
	appendStr("status", stored.Status, in.Status)
	appendStr("reason", stored.Reason, in.Reason)
	if !stored.RefundAmount.Round(2).Equal(in.RefundAmount.Round(2)) {
		changes = append(changes, FieldChange{
			Field:    "refundAmount",
			Previous: renderMoney(stored.RefundAmount),
			Current:  renderMoney(in.RefundAmount),
		})
	}
	if !stored.OpenedAt.Equal(in.OpenedAt) {
		changes = append(changes, FieldChange{Field: "openedAt", Previous: renderTime(stored.OpenedAt), Current: renderTime(in.OpenedAt)})
	}

	return changes
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------
// Collections render to a stable fingerprint string. Stored and canonical
// shapes render through the same format so equality means field equality,
// independent of surrogate line ids.

func renderMoney(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func renderTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func renderTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return renderTime(*t)
}

func renderBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func renderOrderLines(lines []orders.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%d|%s", l.ItemID, l.SKU, l.Title, l.Quantity, renderMoney(l.UnitPrice)))
	}
	return strings.Join(parts, "; ")
}

func renderCanonicalLines(lines []feed.CanonicalLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%d|%s", l.ItemID, l.SKU, l.Title, l.Quantity, renderMoney(l.UnitPrice)))
	}
	return strings.Join(parts, "; ")
}

func renderOrderRefunds(refunds []orders.OrderRefund) string {
	parts := make([]string, 0, len(refunds))
	for _, r := range refunds {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%s", r.RefundID, renderMoney(r.Amount), r.Reason, renderTime(r.RefundedAt)))
	}
	return strings.Join(parts, "; ")
}

func renderCanonicalRefunds(refunds []feed.CanonicalRefund) string {
	parts := make([]string, 0, len(refunds))
	for _, r := range refunds {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%s", r.RefundID, renderMoney(r.Amount), r.Reason, renderTime(r.RefundedAt)))
	}
	return strings.Join(parts, "; ")
}

func renderStoredAddress(o *orders.Order) string {
	return strings.Join([]string{
		o.ShipToName, o.ShipToLine1, o.ShipToLine2,
		o.ShipToCity, o.ShipToRegion, o.ShipToPostal, o.ShipToCountry,
	}, "|")
}

func renderAddress(a feed.Address) string {
	return strings.Join([]string{
		a.Name, a.Line1, a.Line2,
		a.City, a.Region, a.PostalCode, a.Country,
	}, "|")
}
