package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is identified by an opaque slug; it comes into existence the first
// time anyone joins it.
type Room struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoomMember records that a user has joined a room at least once. It is
// created exactly once per (room, user) pair and never deleted; leaving a
// room does not erase history.
type RoomMember struct {
	ID       uuid.UUID `json:"id" db:"id"`
	RoomID   string    `json:"room_id" db:"room_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

type CreateRoomRequest struct {
	ID   string `json:"id" binding:"required,max=255"`
	Name string `json:"name" binding:"required,max=255"`
}

// RoomInfo is the live snapshot returned by the rooms listing endpoint.
type RoomInfo struct {
	RoomID    string   `json:"room_id"`
	UserCount int      `json:"user_count"`
	Users     []string `json:"users"`
}
