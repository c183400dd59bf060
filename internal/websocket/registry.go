package websocket

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/sneha822/chatshield-backend/internal/models"
)

// Registry is the authoritative set of live connections, keyed by room. A
// user may hold several concurrent connections in the same room; the room
// counts them as one occupant.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection to its room. It reports whether this is the
// user's first live connection in the room (presence only; join
// announcements are driven by the membership store, not by this flag).
func (r *Registry) Register(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.rooms[c.roomID]
	if !ok {
		clients = make(map[*Client]struct{})
		r.rooms[c.roomID] = clients
	}

	first := true
	for other := range clients {
		if other.username == c.username {
			first = false
			break
		}
	}

	clients[c] = struct{}{}
	log.Printf("User %s connected to room %s", c.username, c.roomID)
	return first
}

// Unregister removes a connection; repeated calls are no-ops. It reports
// whether the user now holds no live connection in the room.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.rooms[c.roomID]
	if !ok {
		return false
	}
	if _, ok := clients[c]; !ok {
		return false
	}

	delete(clients, c)
	c.closeSend()
	if len(clients) == 0 {
		delete(r.rooms, c.roomID)
	}

	last := true
	for other := range clients {
		if other.username == c.username {
			last = false
			break
		}
	}

	log.Printf("User %s disconnected from room %s", c.username, c.roomID)
	return last
}

// Broadcast delivers an event to every connection currently in the room.
// The payload is marshaled once, so every receiver sees identical bytes; a
// connection whose buffer is full has its send channel closed rather than
// blocking the room.
func (r *Registry) Broadcast(roomID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal broadcast for room %s: %v", roomID, err)
		return
	}

	var overflowed []*Client

	r.mu.RLock()
	for c := range r.rooms[roomID] {
		if delivered, open := c.enqueue(data); open && !delivered {
			overflowed = append(overflowed, c)
		}
	}
	r.mu.RUnlock()

	// Closing the send channel makes the write pump exit and close the
	// connection; the read pump then runs the normal disconnect path, so
	// last-connection accounting, the leave announcement and the presence
	// cleanup still happen for a dropped connection.
	for _, c := range overflowed {
		log.Printf("Dropping overflowed connection for %s in room %s", c.username, roomID)
		c.closeSend()
	}
}

// SendToUser unicasts an event to every connection the user holds in the
// room (multi-tab clients all see moderation notices).
func (r *Registry) SendToUser(roomID, username string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal unicast for %s in %s: %v", username, roomID, err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for c := range r.rooms[roomID] {
		if c.username == username {
			c.enqueue(data)
		}
	}
}

// ListUsers returns the distinct users holding at least one live connection
// in the room, sorted for stable output.
func (r *Registry) ListUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for c := range r.rooms[roomID] {
		seen[c.username] = struct{}{}
	}

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// RoomInfos returns a live snapshot of all non-empty rooms.
func (r *Registry) RoomInfos() []models.RoomInfo {
	r.mu.RLock()
	roomIDs := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		roomIDs = append(roomIDs, roomID)
	}
	r.mu.RUnlock()

	sort.Strings(roomIDs)
	infos := make([]models.RoomInfo, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		users := r.ListUsers(roomID)
		if len(users) == 0 {
			continue
		}
		infos = append(infos, models.RoomInfo{
			RoomID:    roomID,
			UserCount: len(users),
			Users:     users,
		})
	}
	return infos
}

// ConnectionCount returns the total number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, clients := range r.rooms {
		n += len(clients)
	}
	return n
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
