package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sneha822/chatshield-backend/internal/cache"
	"github.com/sneha822/chatshield-backend/internal/models"
	"github.com/sneha822/chatshield-backend/internal/repository"
	"github.com/sneha822/chatshield-backend/internal/websocket"
)

// RoomStore is the slice of the room repository the chat endpoints use.
type RoomStore interface {
	Create(room *models.Room) error
	RoomsOf(userID uuid.UUID) ([]models.RoomMember, error)
}

type ChatHandler struct {
	registry     *websocket.Registry
	roomRepo     RoomStore
	msgRepo      *repository.MessageRepository
	redis        *cache.RedisClient
	historyLimit int
}

func NewChatHandler(registry *websocket.Registry, roomRepo RoomStore, msgRepo *repository.MessageRepository, redis *cache.RedisClient, historyLimit int) *ChatHandler {
	return &ChatHandler{
		registry:     registry,
		roomRepo:     roomRepo,
		msgRepo:      msgRepo,
		redis:        redis,
		historyLimit: historyLimit,
	}
}

// GetRooms lists the rooms with live connections and who is in them.
func (h *ChatHandler) GetRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.registry.RoomInfos()})
}

// GetMyRooms lists the caller's room memberships in first-join order.
func (h *ChatHandler) GetMyRooms(c *gin.Context) {
	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	memberships, err := h.roomRepo.RoomsOf(uid)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load rooms")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": memberships,
		"count": len(memberships),
	})
}

// GetRoomUsers lists the users currently online in one room. When Redis is
// available the local view is merged with the presence set, so users on
// other server instances are included.
func (h *ChatHandler) GetRoomUsers(c *gin.Context) {
	roomID := c.Param("room_id")

	users := h.registry.ListUsers(roomID)
	if h.redis != nil {
		if remote, err := h.redis.OnlineUsers(roomID); err == nil {
			users = mergeUsers(users, remote)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id": roomID,
		"users":   users,
		"count":   len(users),
	})
}

func mergeUsers(local, remote []string) []string {
	seen := make(map[string]struct{}, len(local)+len(remote))
	merged := make([]string, 0, len(local)+len(remote))
	for _, u := range append(local, remote...) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		merged = append(merged, u)
	}
	sort.Strings(merged)
	return merged
}

// GetRoomMessages returns the room's recent message history.
func (h *ChatHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	var req models.GetMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}

	messages, err := h.msgRepo.GetByRoom(roomID, limit)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":  roomID,
		"messages": messages,
		"count":    len(messages),
	})
}

// CreateRoom creates a named room ahead of anyone joining it.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	room := &models.Room{ID: req.ID, Name: req.Name}
	if err := h.roomRepo.Create(room); err != nil {
		ErrorResponse(c, http.StatusConflict, "Room already exists")
		return
	}

	c.JSON(http.StatusCreated, room)
}
