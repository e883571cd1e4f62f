package sellers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/sellers"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// ==================== DTOs ====================

// RegisterSellerRequest registers a seller account for polling
type RegisterSellerRequest struct {
	Code          string `json:"code" binding:"required,min=1,max=64"`
	Marketplace   string `json:"marketplace" binding:"required"`
	DisplayName   string `json:"display_name" binding:"required,min=1,max=200"`
	CredentialRef string `json:"credential_ref"`
}

// UpdateSellerRequest updates a seller account
type UpdateSellerRequest struct {
	DisplayName   *string `json:"display_name"`
	Enabled       *bool   `json:"enabled"`
	CredentialRef *string `json:"credential_ref"`
}

// SellerResponse is the API shape of a seller account
type SellerResponse struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	Marketplace   string    `json:"marketplace"`
	DisplayName   string    `json:"display_name"`
	Enabled       bool      `json:"enabled"`
	CredentialRef string    `json:"credential_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToSellerResponse maps a domain seller to its API shape
func ToSellerResponse(s *sellers.Seller) SellerResponse {
	return SellerResponse{
		ID:            s.ID,
		Code:          s.Code,
		Marketplace:   string(s.Marketplace),
		DisplayName:   s.DisplayName,
		Enabled:       s.Enabled,
		CredentialRef: s.CredentialRef,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// ==================== Service ====================

// SellerService manages the seller accounts the poller iterates
type SellerService struct {
	sellerRepo sellers.Repository
}

// NewSellerService creates a new SellerService
func NewSellerService(sellerRepo sellers.Repository) *SellerService {
	return &SellerService{sellerRepo: sellerRepo}
}

// Register creates a seller account. The (code, marketplace) pair is unique.
func (s *SellerService) Register(ctx context.Context, req RegisterSellerRequest) (*SellerResponse, error) {
	marketplace := feed.Marketplace(strings.ToUpper(req.Marketplace))
	if existing, err := s.sellerRepo.FindByCode(ctx, req.Code, marketplace); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	}

	seller, err := sellers.NewSeller(req.Code, marketplace, req.DisplayName)
	if err != nil {
		return nil, err
	}
	seller.CredentialRef = req.CredentialRef

	if err := s.sellerRepo.Save(ctx, seller); err != nil {
		return nil, err
	}
	resp := ToSellerResponse(seller)
	return &resp, nil
}

// Get retrieves one seller account
func (s *SellerService) Get(ctx context.Context, code string, marketplace feed.Marketplace) (*SellerResponse, error) {
	seller, err := s.sellerRepo.FindByCode(ctx, code, marketplace)
	if err != nil {
		return nil, err
	}
	resp := ToSellerResponse(seller)
	return &resp, nil
}

// List returns every seller account
func (s *SellerService) List(ctx context.Context) ([]SellerResponse, error) {
	items, err := s.sellerRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]SellerResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToSellerResponse(&items[i]))
	}
	return responses, nil
}

// Update patches a seller account
func (s *SellerService) Update(ctx context.Context, code string, marketplace feed.Marketplace, req UpdateSellerRequest) (*SellerResponse, error) {
	seller, err := s.sellerRepo.FindByCode(ctx, code, marketplace)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			return nil, shared.NewDomainError("VALIDATION", "Display name cannot be empty")
		}
		seller.DisplayName = *req.DisplayName
	}
	if req.Enabled != nil {
		seller.Enabled = *req.Enabled
	}
	if req.CredentialRef != nil {
		seller.CredentialRef = *req.CredentialRef
	}
	seller.UpdatedAt = time.Now()

	if err := s.sellerRepo.Save(ctx, seller); err != nil {
		return nil, err
	}
	resp := ToSellerResponse(seller)
	return &resp, nil
}
