package websocket

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sneha822/chatshield-backend/internal/chat"
	"github.com/sneha822/chatshield-backend/internal/models"
)

// Presence covers the Redis-backed presence and rate limit calls a live
// connection makes. *cache.RedisClient satisfies it; a nil Presence means
// Redis is not configured and the client falls back to local state.
type Presence interface {
	SetUserOnline(roomID, username string) error
	SetUserOffline(roomID, username string) error
	AllowAction(userID uuid.UUID, action string, rate int, burst int) (bool, error)
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10240 // 10KB
)

// Client represents one live WebSocket connection in a room
type Client struct {
	registry    *Registry
	conn        *websocket.Conn
	send        chan []byte
	userID      uuid.UUID
	username    string
	roomID      string
	connectedAt time.Time

	sink  chat.Sink
	redis Presence

	// local fallback limiter when Redis is unavailable
	limiter   *rate.Limiter
	msgRate   int
	closeOnce sync.Once
}

// NewClient creates a client for an upgraded connection
func NewClient(
	registry *Registry,
	conn *websocket.Conn,
	userID uuid.UUID,
	username string,
	roomID string,
	sink chat.Sink,
	redis Presence,
	messagesPerSec int,
) *Client {
	if messagesPerSec <= 0 {
		messagesPerSec = 10
	}
	return &Client{
		registry:    registry,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID,
		username:    username,
		roomID:      roomID,
		connectedAt: time.Now(),
		sink:        sink,
		redis:       redis,
		limiter:     rate.NewLimiter(rate.Limit(messagesPerSec), messagesPerSec*2),
		msgRate:     messagesPerSec,
	}
}

func (c *Client) UserID() uuid.UUID      { return c.userID }
func (c *Client) Username() string       { return c.username }
func (c *Client) Room() string           { return c.roomID }
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Send queues an event for this connection; it drops silently if the
// connection has closed or its buffer is full.
func (c *Client) Send(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event for %s: %v", c.username, err)
		return
	}
	c.enqueue(data)
}

// enqueue queues a marshaled frame without blocking. delivered reports
// whether the frame made it into the buffer; open is false once closeSend
// has run, so callers can tell a full connection from a dead one.
func (c *Client) enqueue(data []byte) (delivered, open bool) {
	defer func() {
		// enqueue may race with closeSend; a frame lost on a dying
		// connection is fine.
		if recover() != nil {
			delivered, open = false, false
		}
	}()

	select {
	case c.send <- data:
		return true, true
	default:
		return false, true
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump pumps inbound frames from the connection into the pipeline
func (c *Client) ReadPump() {
	defer func() {
		last := c.registry.Unregister(c)
		if last && c.redis != nil {
			if err := c.redis.SetUserOffline(c.roomID, c.username); err != nil {
				log.Printf("Failed to clear presence for %s: %v", c.username, err)
			}
		}
		c.sink.OnDisconnect(c, last)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.refreshPresence()
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if !c.allowMessage() {
			c.Send(models.ErrorEvent{
				Type:      models.EventError,
				Content:   "rate_limited",
				Sender:    models.SystemSender,
				Timestamp: time.Now(),
			})
			continue
		}

		c.sink.OnMessage(c, parseContent(raw))
	}
}

// refreshPresence keeps the Redis presence entry alive while the connection
// is open. Riding the pong heartbeat, it fires well inside the key's TTL.
func (c *Client) refreshPresence() {
	if c.redis == nil {
		return
	}
	if err := c.redis.SetUserOnline(c.roomID, c.username); err != nil {
		log.Printf("Failed to refresh presence for %s: %v", c.username, err)
	}
}

// allowMessage checks the per-user send rate: a shared Redis token bucket
// when Redis is up, a local limiter otherwise.
func (c *Client) allowMessage() bool {
	if c.redis != nil {
		ok, err := c.redis.AllowAction(c.userID, "chat_message", c.msgRate, c.msgRate*2)
		if err == nil {
			return ok
		}
		log.Printf("Redis rate limiter unavailable, using local limiter: %v", err)
	}
	return c.limiter.Allow()
}

// parseContent accepts either a JSON frame {"content": "..."} or plain text
func parseContent(raw []byte) string {
	var in models.InboundMessage
	if err := json.Unmarshal(raw, &in); err == nil && in.Content != "" {
		return in.Content
	}
	return strings.TrimSpace(string(raw))
}

// WritePump pumps queued events to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
