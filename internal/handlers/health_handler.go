package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sneha822/chatshield-backend/internal/websocket"
)

const appVersion = "1.0.0"

// UserCounter reports how many users are registered.
type UserCounter interface {
	Count() (int, error)
}

type HealthHandler struct {
	registry *websocket.Registry
	users    UserCounter
}

func NewHealthHandler(registry *websocket.Registry, users UserCounter) *HealthHandler {
	return &HealthHandler{registry: registry, users: users}
}

// Health reports basic liveness.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"app_name":  "chatshield",
		"version":   appVersion,
		"timestamp": time.Now().UTC(),
	})
}

// Stats reports live connection counts and the registered user total.
func (h *HealthHandler) Stats(c *gin.Context) {
	stats := gin.H{
		"active_connections": h.registry.ConnectionCount(),
		"active_rooms":       h.registry.RoomCount(),
		"timestamp":          time.Now().UTC(),
	}
	if h.users != nil {
		if n, err := h.users.Count(); err == nil {
			stats["registered_users"] = n
		}
	}
	c.JSON(http.StatusOK, stats)
}
