package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sneha822/chatshield-backend/internal/database"
	"github.com/sneha822/chatshield-backend/internal/models"
)

type RoomRepository struct {
	db *database.DB
}

func NewRoomRepository(db *database.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create creates a room with an explicit name. It fails if the id is taken.
func (r *RoomRepository) Create(room *models.Room) error {
	query := `
		INSERT INTO rooms (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(query, room.ID, room.Name).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// EnsureRoom creates the room if it does not exist yet. Rooms come into
// existence the first time anyone joins them, named after their id.
func (r *RoomRepository) EnsureRoom(roomID string) error {
	query := `
		INSERT INTO rooms (id, name, created_at)
		VALUES ($1, $1, NOW())
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.db.Exec(query, roomID); err != nil {
		return fmt.Errorf("failed to ensure room: %w", err)
	}

	return nil
}

// GetByID retrieves a room by its id
func (r *RoomRepository) GetByID(roomID string) (*models.Room, error) {
	query := `SELECT id, name, created_at FROM rooms WHERE id = $1`

	room := &models.Room{}
	err := r.db.QueryRow(query, roomID).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// List returns all rooms ordered by creation time
func (r *RoomRepository) List() ([]models.Room, error) {
	query := `SELECT id, name, created_at FROM rooms ORDER BY created_at ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

// EnsureMember records that a user belongs to a room, creating the room on
// first contact. The created flag is true only for the insert that actually
// happened; concurrent joins of the same pair report it at most once.
func (r *RoomRepository) EnsureMember(userID uuid.UUID, username, roomID string) (bool, error) {
	if err := r.EnsureRoom(roomID); err != nil {
		return false, err
	}

	query := `
		INSERT INTO room_members (id, room_id, user_id, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (room_id, user_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(query, uuid.New(), roomID, userID).Scan(&id)
	if err == sql.ErrNoRows {
		// Already a member.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to ensure membership: %w", err)
	}

	return true, nil
}

// RoomsOf returns the user's memberships in first-join order, one per room
// the user has ever joined.
func (r *RoomRepository) RoomsOf(userID uuid.UUID) ([]models.RoomMember, error) {
	query := `
		SELECT rm.id, rm.room_id, rm.user_id, u.username, rm.joined_at
		FROM room_members rm
		JOIN users u ON u.id = rm.user_id
		WHERE rm.user_id = $1
		ORDER BY rm.joined_at ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user rooms: %w", err)
	}
	defer rows.Close()

	memberships := []models.RoomMember{}
	for rows.Next() {
		var m models.RoomMember
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, nil
}
