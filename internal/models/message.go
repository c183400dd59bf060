package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	RoomID         string          `json:"room_id" db:"room_id"`
	SenderID       uuid.UUID       `json:"sender_id" db:"sender_id"`
	Sender         string          `json:"sender,omitempty"`
	Content        string          `json:"content" db:"content"`
	ToxicityScores *ToxicityScores `json:"toxicity_scores,omitempty" db:"toxicity_scores"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// ToxicityScores is the classifier verdict attached to a message. Scores are
// in [0, 1]; IsToxic is the classifier's boolean cut at 0.5 toxicity.
type ToxicityScores struct {
	Toxicity       float64 `json:"toxicity"`
	SevereToxicity float64 `json:"severe_toxicity"`
	Obscene        float64 `json:"obscene"`
	Threat         float64 `json:"threat"`
	Insult         float64 `json:"insult"`
	IdentityAttack float64 `json:"identity_attack"`
	IsToxic        bool    `json:"is_toxic"`
	Level          string  `json:"toxicity_level"`
}

type GetMessagesRequest struct {
	Limit int `form:"limit"`
}

const MaxMessageLength = 4096
