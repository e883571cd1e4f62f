package handler

import (
	"github.com/gin-gonic/gin"

	sellersapp "github.com/sellerdesk/backend/internal/application/sellers"
)

// SellerHandler handles seller account API endpoints
type SellerHandler struct {
	BaseHandler
	sellerService *sellersapp.SellerService
}

// NewSellerHandler creates a new SellerHandler
func NewSellerHandler(sellerService *sellersapp.SellerService) *SellerHandler {
	return &SellerHandler{
		sellerService: sellerService,
	}
}

// Register adds a seller account to the poll rotation
func (h *SellerHandler) Register(c *gin.Context) {
	var req sellersapp.RegisterSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	seller, err := h.sellerService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, seller)
}

// List returns all registered seller accounts
func (h *SellerHandler) List(c *gin.Context) {
	list, err := h.sellerService.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, list)
}

// Get returns a single seller account
func (h *SellerHandler) Get(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	seller, err := h.sellerService.Get(c.Request.Context(), c.Param("code"), marketplace)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, seller)
}

// Update patches a seller account's display name, enabled flag, or
// credential reference
func (h *SellerHandler) Update(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	var req sellersapp.UpdateSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	seller, err := h.sellerService.Update(c.Request.Context(), c.Param("code"), marketplace, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, seller)
}
