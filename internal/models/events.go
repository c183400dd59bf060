package models

import "time"

// WebSocket event types. Every outbound frame is exactly one of these, each
// with its own fixed payload struct.
const (
	EventChat         = "chat"
	EventJoin         = "join"
	EventLeave        = "leave"
	EventStatus       = "status"
	EventWarning      = "warning"
	EventMuted        = "muted"
	EventUnmuted      = "unmuted"
	EventMuteRejected = "mute_rejected"
	EventError        = "error"
)

// SystemSender is the sender name used for room-wide system announcements.
const SystemSender = "System"

// ChatEvent carries an accepted chat message, annotated with the classifier
// verdict, to every connection in the room.
type ChatEvent struct {
	Type           string          `json:"type"`
	Content        string          `json:"content"`
	Sender         string          `json:"sender"`
	RoomID         string          `json:"room_id"`
	Timestamp      time.Time       `json:"timestamp"`
	ToxicityScores *ToxicityScores `json:"toxicity_scores,omitempty"`
}

// PresenceEvent announces a join or leave together with the updated list of
// online users in the room.
type PresenceEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
	Users     []string  `json:"users"`
}

// StatusEvent is unicast to a connection right after the handshake so the
// client knows its current moderation standing in the room.
type StatusEvent struct {
	Type      string     `json:"type"`
	RoomID    string     `json:"room_id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    MuteStatus `json:"status"`
}

// WarningEvent is unicast to a sender whose toxic message did not yet
// trigger a mute.
type WarningEvent struct {
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	RoomID    string     `json:"room_id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    MuteStatus `json:"status"`
}

// MutedEvent is unicast to the sender the moment a mute triggers.
type MutedEvent struct {
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	RoomID    string     `json:"room_id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    MuteStatus `json:"status"`
}

// RoomMutedEvent is the room-wide mute announcement. It deliberately exposes
// only the muted user and the expiry, not the full status snapshot.
type RoomMutedEvent struct {
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Sender        string    `json:"sender"`
	RoomID        string    `json:"room_id"`
	Timestamp     time.Time `json:"timestamp"`
	Username      string    `json:"username"`
	MuteExpiresAt time.Time `json:"mute_expires_at"`
}

// UnmutedEvent is unicast to the sender when a mute lapses or is lifted.
type UnmutedEvent struct {
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	RoomID    string     `json:"room_id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    MuteStatus `json:"status"`
}

// RoomUnmutedEvent is the room-wide unmute announcement.
type RoomUnmutedEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
}

// MuteRejectedEvent is unicast to a muted sender whose message was dropped.
type MuteRejectedEvent struct {
	Type             string     `json:"type"`
	Content          string     `json:"content"`
	RoomID           string     `json:"room_id"`
	Timestamp        time.Time  `json:"timestamp"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Status           MuteStatus `json:"status"`
}

// ErrorEvent reports an invalid inbound message to its sender.
type ErrorEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundMessage is what clients send over the websocket.
type InboundMessage struct {
	Content string `json:"content"`
}
