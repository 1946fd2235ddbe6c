package summary

import "time"

// Summary is an AI-generated digest of a session's messages. Revision ties
// it to the board state it was computed from; a stale revision means the
// board changed since.
type Summary struct {
	SessionID   string    `json:"session_id"`
	Revision    uint64    `json:"revision"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

type upstreamRequest struct {
	SessionID string            `json:"session_id"`
	Messages  []upstreamMessage `json:"messages"`
}

type upstreamMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type upstreamResponse struct {
	Summary string `json:"summary"`
}
