package session

import "time"

// Session is one live classroom Q&A session. The join code is the short
// audience-facing identifier; the UUID is internal.
type Session struct {
	ID        string     `json:"id" db:"id"`
	Code      string     `json:"code" db:"code"`
	Title     string     `json:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// JoinInfo is what the instructor dashboard renders on the join panel.
type JoinInfo struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	URL       string `json:"url"`
}
