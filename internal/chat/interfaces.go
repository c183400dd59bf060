package chat

import (
	"github.com/google/uuid"

	"github.com/sneha822/chatshield-backend/internal/models"
)

// Conn is one live client connection as seen by the pipeline.
type Conn interface {
	UserID() uuid.UUID
	Username() string
	Room() string
	// Send unicasts an event to this connection, best-effort; it silently
	// drops if the connection has since closed or its buffer is full.
	Send(event interface{})
}

// Sink receives connection lifecycle and inbound message callbacks from the
// transport layer. The pipeline implements it.
type Sink interface {
	OnConnect(c Conn)
	OnMessage(c Conn, content string)
	// OnDisconnect is called after the connection has been unregistered;
	// lastConnection is true when the user holds no other live connection
	// in the room.
	OnDisconnect(c Conn, lastConnection bool)
}

// Broadcaster delivers events to rooms and users. The connection registry
// implements it.
type Broadcaster interface {
	Broadcast(roomID string, event interface{})
	SendToUser(roomID, username string, event interface{})
	ListUsers(roomID string) []string
}

// MembershipStore is the durable record of which users have ever joined
// which rooms. EnsureMember is create-if-absent: under concurrent first
// joins exactly one caller observes created=true.
type MembershipStore interface {
	EnsureMember(userID uuid.UUID, username, roomID string) (created bool, err error)
}

// History persists accepted chat messages.
type History interface {
	Save(msg *models.Message) error
}
