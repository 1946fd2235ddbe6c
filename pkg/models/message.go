package models

import "time"

type MessageType string

const (
	MessageTypeQuestion MessageType = "question"
	MessageTypeFeedback MessageType = "feedback"
)

// Valid reports whether t is one of the two supported message types.
func (t MessageType) Valid() bool {
	return t == MessageTypeQuestion || t == MessageTypeFeedback
}

// Message is one audience-submitted item, either a question or a piece
// of feedback. Answered is meaningful only for questions.
type Message struct {
	ID        string      `json:"id" db:"id"`
	SessionID string      `json:"session_id" db:"session_id"`
	Type      MessageType `json:"type" db:"type"`
	Content   string      `json:"content" db:"content"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	Read      bool        `json:"read" db:"read"`
	Answered  bool        `json:"answered" db:"answered"`
}
