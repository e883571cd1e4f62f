package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/orders"
)

// ==================== Requests ====================

// ListOrdersQuery carries the order list filters
type ListOrdersQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,max=200"`

	Marketplace     string `form:"marketplace"`
	SellerCode      string `form:"seller_code"`
	Buyer           string `form:"buyer"`
	MessagingStatus string `form:"messaging_status"`
	ItemStatus      string `form:"item_status"`
	Cancelled       *bool  `form:"cancelled"`

	// SoldOn filters to a single calendar day (UTC). Mutually exclusive
	// with the range pair below.
	SoldOn   string `form:"sold_on"`
	SoldFrom string `form:"sold_from"`
	SoldTo   string `form:"sold_to"`
}

// UpdateWorkflowFieldRequest sets one operator-editable field
type UpdateWorkflowFieldRequest struct {
	Field string `json:"field" binding:"required"`
	// Value is the new field value: a string for statuses and notes, a
	// number or null for the ad-fee override.
	Value interface{} `json:"value"`
}

// ==================== Responses ====================

// OrderLineResponse is one line item in an order response
type OrderLineResponse struct {
	ItemID    string          `json:"item_id"`
	SKU       string          `json:"sku,omitempty"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderRefundResponse is one refund entry in an order response
type OrderRefundResponse struct {
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// AddressResponse is the shipping address in an order response
type AddressResponse struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// OrderResponse is the API shape of an order
type OrderResponse struct {
	OrderID     string `json:"order_id"`
	Marketplace string `json:"marketplace"`
	SellerCode  string `json:"seller_code"`

	BuyerID        string                `json:"buyer_id,omitempty"`
	BuyerName      string                `json:"buyer_name,omitempty"`
	Lines          []OrderLineResponse   `json:"lines"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	Shipping       decimal.Decimal       `json:"shipping"`
	Tax            decimal.Decimal       `json:"tax"`
	Discount       decimal.Decimal       `json:"discount"`
	Fees           decimal.Decimal       `json:"fees"`
	SoldAt         time.Time             `json:"sold_at"`
	ShipBy         *time.Time            `json:"ship_by,omitempty"`
	Cancelled      bool                  `json:"cancelled"`
	Refunds        []OrderRefundResponse `json:"refunds"`
	TrackingNumber string                `json:"tracking_number,omitempty"`
	ShipTo         AddressResponse       `json:"ship_to"`

	MessagingStatus string           `json:"messaging_status"`
	ItemStatus      string           `json:"item_status"`
	Notes           string           `json:"notes,omitempty"`
	AdFeeOverride   *decimal.Decimal `json:"ad_fee_override,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToOrderResponse maps a domain order to its API shape
func ToOrderResponse(o *orders.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:        o.OrderID,
		Marketplace:    string(o.Marketplace),
		SellerCode:     o.SellerCode,
		BuyerID:        o.BuyerID,
		BuyerName:      o.BuyerName,
		Lines:          make([]OrderLineResponse, 0, len(o.Lines)),
		Subtotal:       o.Subtotal,
		Shipping:       o.Shipping,
		Tax:            o.Tax,
		Discount:       o.Discount,
		Fees:           o.Fees,
		SoldAt:         o.SoldAt,
		ShipBy:         o.ShipBy,
		Cancelled:      o.Cancelled,
		Refunds:        make([]OrderRefundResponse, 0, len(o.Refunds)),
		TrackingNumber: o.TrackingNumber,
		ShipTo: AddressResponse{
			Name:       o.ShipToName,
			Line1:      o.ShipToLine1,
			Line2:      o.ShipToLine2,
			City:       o.ShipToCity,
			Region:     o.ShipToRegion,
			PostalCode: o.ShipToPostal,
			Country:    o.ShipToCountry,
		},
		MessagingStatus: string(o.MessagingStatus),
		ItemStatus:      string(o.ItemStatus),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.AdFeeOverride.Valid {
		amount := o.AdFeeOverride.Decimal
		resp.AdFeeOverride = &amount
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ItemID:    l.ItemID,
			SKU:       l.SKU,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	for _, r := range o.Refunds {
		resp.Refunds = append(resp.Refunds, OrderRefundResponse{
			RefundID:   r.RefundID,
			Amount:     r.Amount,
			Reason:     r.Reason,
			RefundedAt: r.RefundedAt,
		})
	}
	return resp
}
