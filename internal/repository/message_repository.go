package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sneha822/chatshield-backend/internal/database"
	"github.com/sneha822/chatshield-backend/internal/models"
)

// toxicMessageCutoff is the toxicity score above which a stored message
// counts as toxic in analytics.
const toxicMessageCutoff = 0.5

type MessageRepository struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save persists a message together with its classifier verdict.
func (r *MessageRepository) Save(msg *models.Message) error {
	scores := sql.NullString{}
	if msg.ToxicityScores != nil {
		data, err := json.Marshal(msg.ToxicityScores)
		if err != nil {
			return fmt.Errorf("failed to marshal toxicity scores: %w", err)
		}
		scores = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO messages (id, room_id, sender_id, content, toxicity_scores, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.Exec(query, msg.ID, msg.RoomID, msg.SenderID, msg.Content, scores, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetByRoom returns the room's most recent messages in chronological order.
func (r *MessageRepository) GetByRoom(roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT m.id, m.room_id, m.sender_id, u.username, m.content, m.toxicity_scores, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var scores sql.NullString
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Sender, &m.Content, &scores, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if scores.Valid {
			var ts models.ToxicityScores
			if err := json.Unmarshal([]byte(scores.String), &ts); err == nil {
				m.ToxicityScores = &ts
			}
		}
		messages = append(messages, m)
	}

	// Newest-first from the index, oldest-first to the caller.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// RoomAnalytics aggregates per-user message counts and toxicity for a room
// and ranks the top five users on each axis.
func (r *MessageRepository) RoomAnalytics(roomID string) (*models.RoomAnalytics, error) {
	query := `
		SELECT
			u.username,
			COUNT(*),
			AVG(COALESCE((m.toxicity_scores->>'toxicity')::float, 0)),
			COUNT(*) FILTER (WHERE (m.toxicity_scores->>'toxicity')::float > $2)
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_id = $1
		GROUP BY u.username
	`

	rows, err := r.db.Query(query, roomID, toxicMessageCutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate room analytics: %w", err)
	}
	defer rows.Close()

	stats := []models.UserActivityStats{}
	total := 0
	for rows.Next() {
		var s models.UserActivityStats
		if err := rows.Scan(&s.Username, &s.MessageCount, &s.AverageToxicity, &s.ToxicMessages); err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		total += s.MessageCount
		stats = append(stats, s)
	}

	analytics := &models.RoomAnalytics{
		RoomID:        roomID,
		TotalMessages: total,
	}
	analytics.MostToxicUsers = rankUsers(stats, func(a, b models.UserActivityStats) bool {
		return a.AverageToxicity > b.AverageToxicity
	})
	analytics.SafestUsers = rankUsers(stats, func(a, b models.UserActivityStats) bool {
		return a.AverageToxicity < b.AverageToxicity
	})
	analytics.MostActiveUsers = rankUsers(stats, func(a, b models.UserActivityStats) bool {
		return a.MessageCount > b.MessageCount
	})

	return analytics, nil
}

func rankUsers(stats []models.UserActivityStats, less func(a, b models.UserActivityStats) bool) []models.UserActivityStats {
	ranked := make([]models.UserActivityStats, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	return ranked
}
