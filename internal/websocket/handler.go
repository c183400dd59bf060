package websocket

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sneha822/chatshield-backend/internal/auth"
	"github.com/sneha822/chatshield-backend/internal/cache"
	"github.com/sneha822/chatshield-backend/internal/chat"
)

// DefaultRoom is joined when the handshake names no room.
const DefaultRoom = "general"

// Handler handles WebSocket upgrade requests
type Handler struct {
	registry       *Registry
	jwtService     *auth.JWTService
	sink           chat.Sink
	redis          *cache.RedisClient
	allowedOrigins []string
	messagesPerSec int
	upgrader       websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. The upgrader is built once
// with the origin check baked in; it is never mutated afterwards.
func NewHandler(
	registry *Registry,
	jwtService *auth.JWTService,
	sink chat.Sink,
	redis *cache.RedisClient,
	allowedOrigins []string,
	messagesPerSec int,
) *Handler {
	h := &Handler{
		registry:       registry,
		jwtService:     jwtService,
		sink:           sink,
		redis:          redis,
		allowedOrigins: allowedOrigins,
		messagesPerSec: messagesPerSec,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin enforces the configured origin allow-list. An empty list
// permits any origin (development default).
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	for _, pattern := range h.allowedOrigins {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades the connection and joins the requested room
func (h *Handler) HandleWebSocket(c *gin.Context) {
	// Get token from query parameter
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	// Validate token
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	roomID := c.Query("room")
	if roomID == "" {
		roomID = DefaultRoom
	}
	if len(roomID) > 255 || strings.ContainsAny(roomID, " \t\n") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	// Upgrade connection
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	// A nil *RedisClient must stay a nil interface inside the client.
	var presence Presence
	if h.redis != nil {
		presence = h.redis
	}

	client := NewClient(
		h.registry,
		conn,
		claims.UserID,
		claims.Username,
		roomID,
		h.sink,
		presence,
		h.messagesPerSec,
	)

	h.registry.Register(client)
	if h.redis != nil {
		if err := h.redis.SetUserOnline(roomID, claims.Username); err != nil {
			log.Printf("Failed to set presence for %s: %v", claims.Username, err)
		}
	}

	// Membership check, initial status and join announcement happen in the
	// pipeline before any message flows.
	h.sink.OnConnect(client)

	go client.WritePump()
	go client.ReadPump()
}

// matchOrigin supports exact matches or wildcard patterns like *.example.com
func matchOrigin(pattern, origin string) bool {
	if pattern == origin {
		return true
	}
	// simple wildcard support: pattern starts with *.
	if strings.HasPrefix(pattern, "*.") {
		// strip scheme from origin if present
		// e.g., https://sub.example.com -> sub.example.com
		originHost := origin
		if u, err := url.Parse(origin); err == nil {
			originHost = u.Hostname()
		}
		patHost := strings.TrimPrefix(pattern, "*.")
		// ensure originHost ends with patHost
		if strings.HasSuffix(originHost, patHost) {
			return true
		}
	}
	return false
}
