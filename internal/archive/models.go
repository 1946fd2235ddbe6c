package archive

import (
	"time"

	"askline/internal/board"
	"askline/pkg/models"
)

// Transcript is the archived record of one session, rebuilt from the
// message event stream. Stats are computed once when the session is
// sealed.
type Transcript struct {
	SessionID string           `bson:"session_id" json:"session_id"`
	Messages  []models.Message `bson:"messages" json:"messages"`
	Stats     *board.Stats     `bson:"stats,omitempty" json:"stats,omitempty"`
	EndedAt   *time.Time       `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}
