package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query" binding:"required"`
}

// Query godoc
// @Summary Answer a query through the corrective pipeline
// @Tags query
// @Accept json
// @Produce json
// @Param body body queryRequest true "Query parameters"
// @Success 200 {object} crag.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /query [post]
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	// Sessions are created lazily: no ID means a fresh one.
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	answer, err := h.queryService.Answer(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, answer)
}

// GetHistory godoc
// @Summary Get the answer history of a session
// @Tags query
// @Param sessionId query string true "Session ID"
// @Produce json
// @Success 200 {array} crag.Answer
// @Failure 400 {object} ErrorResponse
// @Router /history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("sessionId is required"))
		return
	}

	history := h.queryService.History(sessionID)
	sendJSON(c, http.StatusOK, history)
}
