package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncapp "github.com/sellerdesk/backend/internal/application/sync"
	"github.com/sellerdesk/backend/internal/interfaces/http/dto"
)

func TestSyncHandlerGetLastRunEmpty(t *testing.T) {
	pollService := syncapp.NewPollService(nil, nil, nil, nil, nil, syncapp.Config{}, zap.NewNop())
	h := NewSyncHandler(pollService)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/sync/runs/last", nil)

	h.GetLastRun(c)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestSyncHandlerTriggerPollRejectsUnknownMode(t *testing.T) {
	pollService := syncapp.NewPollService(nil, nil, nil, nil, nil, syncapp.Config{}, zap.NewNop())
	h := NewSyncHandler(pollService)

	body, _ := json.Marshal(gin.H{"mode": "EVERYTHING"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sync/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(body))
	c.Request = req

	h.TriggerPoll(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
