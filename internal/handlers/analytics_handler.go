package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sneha822/chatshield-backend/internal/repository"
)

type AnalyticsHandler struct {
	msgRepo *repository.MessageRepository
}

func NewAnalyticsHandler(msgRepo *repository.MessageRepository) *AnalyticsHandler {
	return &AnalyticsHandler{msgRepo: msgRepo}
}

// GetRoomAnalytics returns message volume and toxicity rankings for a room.
func (h *AnalyticsHandler) GetRoomAnalytics(c *gin.Context) {
	roomID := c.Param("room_id")

	analytics, err := h.msgRepo.RoomAnalytics(roomID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}
	if analytics.TotalMessages == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No data available for this room"})
		return
	}

	c.JSON(http.StatusOK, analytics)
}
