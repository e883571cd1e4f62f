package handler

import (
	"github.com/gin-gonic/gin"

	returnsapp "github.com/sellerdesk/backend/internal/application/returns"
	"github.com/sellerdesk/backend/internal/interfaces/http/middleware"
)

// ReturnHandler handles return worksheet API endpoints
type ReturnHandler struct {
	BaseHandler
	returnService *returnsapp.ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returnService *returnsapp.ReturnService) *ReturnHandler {
	return &ReturnHandler{
		returnService: returnService,
	}
}

// List returns a paginated list of returns with optional filtering
func (h *ReturnHandler) List(c *gin.Context) {
	var query returnsapp.ListReturnsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.returnService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns a single return by marketplace and return ID
func (h *ReturnHandler) Get(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	ret, err := h.returnService.GetByID(c.Request.Context(), marketplace, c.Param("return_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ret)
}

// ListForOrder returns all returns attached to an order
func (h *ReturnHandler) ListForOrder(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	rets, err := h.returnService.GetByOrderID(c.Request.Context(), marketplace, c.Param("order_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rets)
}

// SetWorksheetStatus moves a return through the local worksheet
func (h *ReturnHandler) SetWorksheetStatus(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	var req returnsapp.UpdateWorksheetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ret, err := h.returnService.SetWorksheetStatus(c.Request.Context(), marketplace, c.Param("return_id"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ret)
}

// Delete removes a return
func (h *ReturnHandler) Delete(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	if err := h.returnService.Delete(c.Request.Context(), marketplace, c.Param("return_id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
