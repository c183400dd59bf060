package models

// UserActivityStats is one user's row in a room's analytics rankings.
type UserActivityStats struct {
	Username        string  `json:"username"`
	MessageCount    int     `json:"message_count"`
	AverageToxicity float64 `json:"average_toxicity"`
	ToxicMessages   int     `json:"toxic_messages"`
}

// RoomAnalytics summarizes message activity and toxicity for one room.
// Each ranking holds at most five users.
type RoomAnalytics struct {
	RoomID          string              `json:"room_id"`
	TotalMessages   int                 `json:"total_messages"`
	MostToxicUsers  []UserActivityStats `json:"most_toxic_users"`
	SafestUsers     []UserActivityStats `json:"safest_users"`
	MostActiveUsers []UserActivityStats `json:"most_active_users"`
}
