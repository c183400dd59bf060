package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sneha822/chatshield-backend/internal/database"
	"github.com/sneha822/chatshield-backend/internal/moderation"
)

// MuteRepository persists moderation records so warning counts and active
// mutes survive a server restart. It implements moderation.Store.
type MuteRepository struct {
	db *database.DB
}

func NewMuteRepository(db *database.DB) *MuteRepository {
	return &MuteRepository{db: db}
}

// Save upserts the record keyed by (user, room).
func (r *MuteRepository) Save(snap moderation.RecordSnapshot) error {
	userID, err := r.resolveUserID(snap.Username)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_mutes (id, user_id, room_id, warning_count, consecutive_toxic_count,
			is_muted, muted_at, mute_expires_at, total_mute_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id, room_id) DO UPDATE SET
			warning_count = EXCLUDED.warning_count,
			consecutive_toxic_count = EXCLUDED.consecutive_toxic_count,
			is_muted = EXCLUDED.is_muted,
			muted_at = EXCLUDED.muted_at,
			mute_expires_at = EXCLUDED.mute_expires_at,
			total_mute_count = EXCLUDED.total_mute_count,
			updated_at = NOW()
	`

	_, err = r.db.Exec(
		query,
		uuid.New(),
		userID,
		snap.RoomID,
		snap.WarningCount,
		snap.ConsecutiveToxicCount,
		snap.IsMuted,
		snap.MutedAt,
		snap.MuteExpiresAt,
		snap.TotalMuteCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save mute record: %w", err)
	}

	return nil
}

// Load returns the persisted record for the pair, or nil if none exists.
func (r *MuteRepository) Load(username, roomID string) (*moderation.RecordSnapshot, error) {
	query := `
		SELECT um.warning_count, um.consecutive_toxic_count, um.is_muted,
			um.muted_at, um.mute_expires_at, um.total_mute_count
		FROM user_mutes um
		JOIN users u ON u.id = um.user_id
		WHERE u.username = $1 AND um.room_id = $2
	`

	snap := &moderation.RecordSnapshot{Username: username, RoomID: roomID}
	err := r.db.QueryRow(query, username, roomID).Scan(
		&snap.WarningCount,
		&snap.ConsecutiveToxicCount,
		&snap.IsMuted,
		&snap.MutedAt,
		&snap.MuteExpiresAt,
		&snap.TotalMuteCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mute record: %w", err)
	}

	return snap, nil
}

func (r *MuteRepository) resolveUserID(username string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.QueryRow(`SELECT id FROM users WHERE username = $1`, username).Scan(&userID)
	if err == sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}
