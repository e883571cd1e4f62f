package returns

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/returns"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// ==================== DTOs ====================

// ListReturnsQuery carries the return worksheet filters
type ListReturnsQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,max=200"`

	Marketplace     string `form:"marketplace"`
	SellerCode      string `form:"seller_code"`
	WorksheetStatus string `form:"worksheet_status"`
	OrderID         string `form:"order_id"`
}

// UpdateWorksheetStatusRequest moves a return through the worksheet
type UpdateWorksheetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReturnResponse is the API shape of a return
type ReturnResponse struct {
	ReturnID    string `json:"return_id"`
	Marketplace string `json:"marketplace"`
	SellerCode  string `json:"seller_code"`
	OrderID     string `json:"order_id,omitempty"`

	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	OpenedAt     time.Time       `json:"opened_at"`

	WorksheetStatus string `json:"worksheet_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToReturnResponse maps a domain return to its API shape
func ToReturnResponse(r *returns.Return) ReturnResponse {
	return ReturnResponse{
		ReturnID:        r.ReturnID,
		Marketplace:     string(r.Marketplace),
		SellerCode:      r.SellerCode,
		OrderID:         r.OrderID,
		Status:          r.Status,
		Reason:          r.Reason,
		RefundAmount:    r.RefundAmount,
		OpenedAt:        r.OpenedAt,
		WorksheetStatus: string(r.WorksheetStatus),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ==================== Service ====================

// ReturnService handles return worksheet operations
type ReturnService struct {
	returnRepo returns.Repository
}

// NewReturnService creates a new ReturnService
func NewReturnService(returnRepo returns.Repository) *ReturnService {
	return &ReturnService{returnRepo: returnRepo}
}

// List returns a page of returns, newest opened first
func (s *ReturnService) List(ctx context.Context, query ListReturnsQuery) (*shared.Paginated[ReturnResponse], error) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "opened_at"
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	if query.Marketplace != "" {
		m := feed.Marketplace(strings.ToUpper(query.Marketplace))
		if !m.IsValid() {
			return nil, shared.NewDomainError("VALIDATION", "Unknown marketplace: "+query.Marketplace)
		}
		filter.Filters["marketplace"] = string(m)
	}
	if query.SellerCode != "" {
		filter.Filters["seller_code"] = query.SellerCode
	}
	if query.WorksheetStatus != "" {
		if !returns.WorksheetStatus(query.WorksheetStatus).IsValid() {
			return nil, shared.NewDomainError("VALIDATION", "Unknown worksheet status: "+query.WorksheetStatus)
		}
		filter.Filters["worksheet_status"] = query.WorksheetStatus
	}
	if query.OrderID != "" {
		filter.Filters["order_id"] = query.OrderID
	}

	items, err := s.returnRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.returnRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]ReturnResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToReturnResponse(&items[i]))
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// GetByID retrieves one return by its natural identity
func (s *ReturnService) GetByID(ctx context.Context, marketplace feed.Marketplace, returnID string) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, marketplace, returnID)
	if err != nil {
		return nil, err
	}
	resp := ToReturnResponse(ret)
	return &resp, nil
}

// GetByOrderID lists the returns attached to an order
func (s *ReturnService) GetByOrderID(ctx context.Context, marketplace feed.Marketplace, orderID string) ([]ReturnResponse, error) {
	items, err := s.returnRepo.FindByOrderID(ctx, marketplace, orderID)
	if err != nil {
		return nil, err
	}
	responses := make([]ReturnResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToReturnResponse(&items[i]))
	}
	return responses, nil
}

// SetWorksheetStatus moves the operator worksheet. Validation runs against
// current state and the write touches only the worksheet column, so an
// in-flight sync of the same return cannot be clobbered.
func (s *ReturnService) SetWorksheetStatus(ctx context.Context, marketplace feed.Marketplace, returnID string, req UpdateWorksheetStatusRequest) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, marketplace, returnID)
	if err != nil {
		return nil, err
	}
	if err := ret.SetWorksheetStatus(returns.WorksheetStatus(req.Status)); err != nil {
		return nil, err
	}
	if err := s.returnRepo.UpdateWorksheetStatus(ctx, marketplace, returnID, ret.WorksheetStatus); err != nil {
		return nil, err
	}
	resp := ToReturnResponse(ret)
	return &resp, nil
}

// Delete removes a return by operator action
func (s *ReturnService) Delete(ctx context.Context, marketplace feed.Marketplace, returnID string) error {
	if _, err := s.returnRepo.FindByID(ctx, marketplace, returnID); err != nil {
		return err
	}
	return s.returnRepo.Delete(ctx, marketplace, returnID)
}
