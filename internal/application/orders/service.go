package orders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

const dayLayout = "2006-01-02"

// OrderService handles order queries and workflow edits
type OrderService struct {
	orderRepo orders.Repository
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo orders.Repository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// List returns a page of orders. Default ordering is sold date descending
// with the order id as tie-breaker, so pages stay stable between requests.
func (s *OrderService) List(ctx context.Context, query ListOrdersQuery) (*shared.Paginated[OrderResponse], error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}

	items, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]OrderResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToOrderResponse(&items[i]))
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// GetByID retrieves one order by its natural identity
func (s *OrderService) GetByID(ctx context.Context, marketplace feed.Marketplace, orderID string) (*OrderResponse, error) {
	if !marketplace.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown marketplace: "+string(marketplace))
	}
	order, err := s.orderRepo.FindByID(ctx, marketplace, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// SetWorkflowField updates one operator-editable field. The edit validates
// against current state first and then writes exactly that column; a
// rejected transition leaves the record untouched. Synchronized field
// names are refused outright.
func (s *OrderService) SetWorkflowField(ctx context.Context, marketplace feed.Marketplace, orderID string, req UpdateWorkflowFieldRequest) (*OrderResponse, error) {
	field := orders.WorkflowField(req.Field)
	if !field.IsValid() {
		return nil, shared.ErrInvalidField
	}

	order, err := s.orderRepo.FindByID(ctx, marketplace, orderID)
	if err != nil {
		return nil, err
	}

	if err := applyWorkflowEdit(order, field, req.Value); err != nil {
		return nil, err
	}

	value, err := order.WorkflowValue(field)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateWorkflowField(ctx, marketplace, orderID, field, value); err != nil {
		return nil, err
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// Delete removes an order by operator action
func (s *OrderService) Delete(ctx context.Context, marketplace feed.Marketplace, orderID string) error {
	if _, err := s.orderRepo.FindByID(ctx, marketplace, orderID); err != nil {
		return err
	}
	return s.orderRepo.Delete(ctx, marketplace, orderID)
}

// applyWorkflowEdit coerces the wire value and runs the domain transition
func applyWorkflowEdit(order *orders.Order, field orders.WorkflowField, value interface{}) error {
	switch field {
	case orders.FieldMessagingStatus:
		str, ok := value.(string)
		if !ok {
			return shared.NewDomainError("VALIDATION", "Messaging status must be a string")
		}
		return order.SetMessagingStatus(orders.MessagingStatus(str))
	case orders.FieldItemStatus:
		str, ok := value.(string)
		if !ok {
			return shared.NewDomainError("VALIDATION", "Item status must be a string")
		}
		return order.SetItemStatus(orders.ItemStatus(str))
	case orders.FieldNotes:
		str, ok := value.(string)
		if !ok {
			return shared.NewDomainError("VALIDATION", "Notes must be a string")
		}
		order.SetNotes(str)
		return nil
	case orders.FieldAdFeeOverride:
		amount, err := coerceAmount(value)
		if err != nil {
			return err
		}
		return order.SetAdFeeOverride(amount)
	}
	return shared.ErrInvalidField
}

// coerceAmount accepts the JSON encodings of an optional money amount
func coerceAmount(value interface{}) (*decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, shared.NewDomainError("VALIDATION", "Invalid amount: "+v)
		}
		return &d, nil
	case float64:
		d := decimal.NewFromFloat(v)
		return &d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, shared.NewDomainError("VALIDATION", "Invalid amount: "+v.String())
		}
		return &d, nil
	default:
		return nil, shared.NewDomainError("VALIDATION", "Amount must be a number or null")
	}
}

// buildFilter translates the query into the repository filter
func buildFilter(query ListOrdersQuery) (shared.Filter, error) {
	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	filter.Search = query.Buyer

	if query.Marketplace != "" {
		m := feed.Marketplace(strings.ToUpper(query.Marketplace))
		if !m.IsValid() {
			return filter, shared.NewDomainError("VALIDATION", "Unknown marketplace: "+query.Marketplace)
		}
		filter.Filters["marketplace"] = string(m)
	}
	if query.SellerCode != "" {
		filter.Filters["seller_code"] = query.SellerCode
	}
	if query.MessagingStatus != "" {
		if !orders.MessagingStatus(query.MessagingStatus).IsValid() {
			return filter, shared.NewDomainError("VALIDATION", "Unknown messaging status: "+query.MessagingStatus)
		}
		filter.Filters["messaging_status"] = query.MessagingStatus
	}
	if query.ItemStatus != "" {
		if !orders.ItemStatus(query.ItemStatus).IsValid() {
			return filter, shared.NewDomainError("VALIDATION", "Unknown item status: "+query.ItemStatus)
		}
		filter.Filters["item_status"] = query.ItemStatus
	}
	if query.Cancelled != nil {
		filter.Filters["cancelled"] = *query.Cancelled
	}

	if query.SoldOn != "" {
		day, err := time.Parse(dayLayout, query.SoldOn)
		if err != nil {
			return filter, shared.NewDomainError("VALIDATION", "Invalid sold_on date: "+query.SoldOn)
		}
		filter.Filters["sold_from"] = day
		filter.Filters["sold_before"] = day.AddDate(0, 0, 1)
		return filter, nil
	}
	if query.SoldFrom != "" {
		from, err := time.Parse(dayLayout, query.SoldFrom)
		if err != nil {
			return filter, shared.NewDomainError("VALIDATION", "Invalid sold_from date: "+query.SoldFrom)
		}
		filter.Filters["sold_from"] = from
	}
	if query.SoldTo != "" {
		to, err := time.Parse(dayLayout, query.SoldTo)
		if err != nil {
			return filter, shared.NewDomainError("VALIDATION", "Invalid sold_to date: "+query.SoldTo)
		}
		// inclusive end of day
		filter.Filters["sold_before"] = to.AddDate(0, 0, 1)
	}
	return filter, nil
}
