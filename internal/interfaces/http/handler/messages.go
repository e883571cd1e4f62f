package handler

import (
	"github.com/gin-gonic/gin"

	messagesapp "github.com/sellerdesk/backend/internal/application/messages"
	"github.com/sellerdesk/backend/internal/interfaces/http/middleware"
)

// MessageHandler handles buyer message API endpoints
type MessageHandler struct {
	BaseHandler
	messageService *messagesapp.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *messagesapp.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// List returns a paginated list of messages with optional filtering
func (h *MessageHandler) List(c *gin.Context) {
	var query messagesapp.ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.messageService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetThread returns all messages in a thread, oldest first
func (h *MessageHandler) GetThread(c *gin.Context) {
	thread, err := h.messageService.GetThread(c.Request.Context(), c.Param("thread_key"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, thread)
}

// MarkRead flips the read flag on a single message
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req messagesapp.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	err := h.messageService.MarkRead(c.Request.Context(), c.Param("thread_key"), c.Param("message_id"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
