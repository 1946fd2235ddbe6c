package message

// SubmitMessageRequest is the audience-facing payload.
type SubmitMessageRequest struct {
	Type    string `json:"type" binding:"required,oneof=question feedback"`
	Content string `json:"content" binding:"required,max=2000"`
}

// ClearResult reports how many messages a clear removed.
type ClearResult struct {
	SessionID string `json:"session_id"`
	Removed   int64  `json:"removed"`
}
