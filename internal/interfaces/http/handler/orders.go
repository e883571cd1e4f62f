package handler

import (
	"github.com/gin-gonic/gin"

	ordersapp "github.com/sellerdesk/backend/internal/application/orders"
	"github.com/sellerdesk/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *ordersapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *ordersapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// List returns a paginated list of orders with optional filtering
func (h *OrderHandler) List(c *gin.Context) {
	var query ordersapp.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.orderService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns a single order by marketplace and order ID
func (h *OrderHandler) Get(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), marketplace, c.Param("order_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// SetWorkflowField updates one operator-editable field on an order.
// Synchronized fields are rejected; those only change via the feed.
func (h *OrderHandler) SetWorkflowField(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	var req ordersapp.UpdateWorkflowFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.SetWorkflowField(c.Request.Context(), marketplace, c.Param("order_id"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Delete removes an order and its child rows
func (h *OrderHandler) Delete(c *gin.Context) {
	marketplace, ok := marketplaceParam(c)
	if !ok {
		h.BadRequest(c, "Unknown marketplace")
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), marketplace, c.Param("order_id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
