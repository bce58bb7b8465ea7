package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"party_server/internal/http/middleware"
	"party_server/internal/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// MyOutcomes returns the caller's recorded results with aggregate stats.
func (h *Handler) MyOutcomes(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	if h.Outcomes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
		return
	}

	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := h.Outcomes.History(c.Request.Context(), id.UserID, limit)
	if err != nil {
		logger.Error("failed to load outcomes", "user_id", id.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, history)
}
