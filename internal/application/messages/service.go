package messages

import (
	"context"
	"strings"
	"time"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/messages"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// ==================== DTOs ====================

// ListMessagesQuery carries the message list filters
type ListMessagesQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,max=200"`

	Marketplace string `form:"marketplace"`
	SellerCode  string `form:"seller_code"`
	OrderID     string `form:"order_id"`
	Unread      *bool  `form:"unread"`
}

// MarkReadRequest flips the read flag on a message
type MarkReadRequest struct {
	Read bool `json:"read"`
}

// MessageResponse is the API shape of a message
type MessageResponse struct {
	ThreadKey   string `json:"thread_key"`
	MessageID   string `json:"message_id"`
	Marketplace string `json:"marketplace"`
	SellerCode  string `json:"seller_code"`

	OrderID string `json:"order_id,omitempty"`
	BuyerID string `json:"buyer_id,omitempty"`
	ItemID  string `json:"item_id,omitempty"`

	Body    string    `json:"body"`
	Inbound bool      `json:"inbound"`
	SentAt  time.Time `json:"sent_at"`
	Read    bool      `json:"read"`
}

// ToMessageResponse maps a domain message to its API shape
func ToMessageResponse(m *messages.Message) MessageResponse {
	return MessageResponse{
		ThreadKey:   m.ThreadKey,
		MessageID:   m.MessageID,
		Marketplace: string(m.Marketplace),
		SellerCode:  m.SellerCode,
		OrderID:     m.OrderID,
		BuyerID:     m.BuyerID,
		ItemID:      m.ItemID,
		Body:        m.Body,
		Inbound:     m.Inbound,
		SentAt:      m.SentAt,
		Read:        m.Read,
	}
}

// ==================== Service ====================

// MessageService handles message queries and read marks
type MessageService struct {
	messageRepo messages.Repository
}

// NewMessageService creates a new MessageService
func NewMessageService(messageRepo messages.Repository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// List returns a page of messages, newest first
func (s *MessageService) List(ctx context.Context, query ListMessagesQuery) (*shared.Paginated[MessageResponse], error) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "sent_at"
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
	if query.OrderID != "" {
		filter.Filters["order_id"] = query.OrderID
	}
	if query.Unread != nil && *query.Unread {
		filter.Filters["read"] = false
	}

	items, err := s.messageRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.messageRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]MessageResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToMessageResponse(&items[i]))
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// GetThread returns a conversation in chronological order
func (s *MessageService) GetThread(ctx context.Context, threadKey string) ([]MessageResponse, error) {
	items, err := s.messageRepo.FindThread(ctx, threadKey)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, shared.ErrNotFound
	}
	responses := make([]MessageResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToMessageResponse(&items[i]))
	}
	return responses, nil
}

// MarkRead flips the read flag, the only operator-mutable message field
func (s *MessageService) MarkRead(ctx context.Context, threadKey, messageID string, req MarkReadRequest) error {
	return s.messageRepo.MarkRead(ctx, threadKey, messageID, req.Read)
}
