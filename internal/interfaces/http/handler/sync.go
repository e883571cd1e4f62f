package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	syncapp "github.com/sellerdesk/backend/internal/application/sync"
)

// SyncHandler handles poll run API endpoints
type SyncHandler struct {
	BaseHandler
	pollService *syncapp.PollService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(pollService *syncapp.PollService) *SyncHandler {
	return &SyncHandler{
		pollService: pollService,
	}
}

// TriggerPollRequest selects the passes a manual poll run performs
type TriggerPollRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=NEW_ONLY UPDATES_ONLY FULL new_only updates_only full"`
}

// TriggerPoll runs a poll synchronously and returns its summary.
// The run itself never fails on seller or record errors; those are
// reported inside the summary.
func (h *SyncHandler) TriggerPoll(c *gin.Context) {
	// An empty body means a full run
	var req TriggerPollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	mode := syncapp.PollFull
	if req.Mode != "" {
		mode = syncapp.PollMode(strings.ToUpper(req.Mode))
	}

	summary, err := h.pollService.Run(c.Request.Context(), mode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetLastRun returns the summary of the most recent poll run
func (h *SyncHandler) GetLastRun(c *gin.Context) {
	summary := h.pollService.LastRun()
	if summary == nil {
		h.NotFound(c, "No poll run recorded yet")
		return
	}

	h.Success(c, summary)
}
