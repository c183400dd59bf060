package models

import "time"

// MuteStatus is the snapshot handed to clients in warning, muted, unmuted,
// mute_rejected and status events. RemainingSeconds is nil while unmuted.
type MuteStatus struct {
	IsMuted               bool       `json:"is_muted"`
	MuteExpiresAt         *time.Time `json:"mute_expires_at,omitempty"`
	RemainingSeconds      *int       `json:"remaining_seconds,omitempty"`
	WarningCount          int        `json:"warning_count"`
	ConsecutiveToxicCount int        `json:"consecutive_toxic_count"`
	TotalMuteCount        int        `json:"total_mute_count"`
	WarningsUntilMute     int        `json:"warnings_until_mute"`
	MuteDurationMinutes   int        `json:"mute_duration_minutes"`
	ToxicThreshold        int        `json:"toxic_threshold"`
}

// MutedUser is one entry of a room's currently-muted listing.
type MutedUser struct {
	Username         string     `json:"username"`
	MutedAt          *time.Time `json:"muted_at,omitempty"`
	MuteExpiresAt    time.Time  `json:"mute_expires_at"`
	RemainingSeconds int        `json:"remaining_seconds"`
	WarningCount     int        `json:"warning_count"`
	TotalMuteCount   int        `json:"total_mute_count"`
}

// RoomModerationStats is the per-room component of a user's stats.
type RoomModerationStats struct {
	RoomID                string     `json:"room_id"`
	WarningCount          int        `json:"warning_count"`
	ConsecutiveToxicCount int        `json:"consecutive_toxic_count"`
	TotalMuteCount        int        `json:"total_mute_count"`
	IsMuted               bool       `json:"is_muted"`
	MuteExpiresAt         *time.Time `json:"mute_expires_at,omitempty"`
}

// UserModerationStats aggregates a user's moderation history across rooms.
type UserModerationStats struct {
	Username      string                `json:"username"`
	TotalWarnings int                   `json:"total_warnings"`
	TotalMutes    int                   `json:"total_mutes"`
	Rooms         []RoomModerationStats `json:"rooms"`
}
