package models

import "time"

// MessageEvent is the envelope published to the broker for every message
// lifecycle change. The archiver consumes these to build session transcripts.
type MessageEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}

type Metadata struct {
	TraceID     string   `json:"trace_id,omitempty"`
	Moderation  []string `json:"moderation_rule_ids,omitempty"`
	SubmitterIP string   `json:"submitter_ip,omitempty"`
}

const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageUpdated = "message.updated"
	EventTypeMessageDeleted = "message.deleted"
	EventTypeSessionEnded   = "session.ended"
)
