package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sneha822/chatshield-backend/internal/moderation"
)

type ModerationHandler struct {
	engine *moderation.Engine
}

func NewModerationHandler(engine *moderation.Engine) *ModerationHandler {
	return &ModerationHandler{engine: engine}
}

// GetMuteStatus returns the caller's moderation standing in a room.
func (h *ModerationHandler) GetMuteStatus(c *gin.Context) {
	username, _ := c.Get("username")
	roomID := c.Param("room_id")

	c.JSON(http.StatusOK, gin.H{
		"room_id": roomID,
		"status":  h.engine.Status(username.(string), roomID),
	})
}

// GetMutedUsers lists everyone currently muted in a room.
func (h *ModerationHandler) GetMutedUsers(c *gin.Context) {
	roomID := c.Param("room_id")
	muted := h.engine.MutedUsers(roomID)

	c.JSON(http.StatusOK, gin.H{
		"room_id":     roomID,
		"muted_users": muted,
		"count":       len(muted),
	})
}

// GetUserStats returns a user's moderation history across all rooms.
func (h *ModerationHandler) GetUserStats(c *gin.Context) {
	username := c.Param("username")
	c.JSON(http.StatusOK, h.engine.UserStats(username))
}

// UnmuteUser lifts an active mute ahead of its expiry.
func (h *ModerationHandler) UnmuteUser(c *gin.Context) {
	roomID := c.Param("room_id")
	username := c.Param("username")

	if !h.engine.Unmute(username, roomID) {
		ErrorResponse(c, http.StatusNotFound, "User is not muted in this room")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":  roomID,
		"username": username,
		"status":   h.engine.Status(username, roomID),
	})
}
