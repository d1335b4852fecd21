package domain

import "time"

// GenerationRequest carries one prompt to the generation service.
// SystemPrompt falls back to the bundled default when empty.
type GenerationRequest struct {
	PostText     string
	SystemPrompt string
	Credential   string
}

// ReplyLogEntry records the outcome of one completed reply action.
// Only the strings already sent over the wire are stored; the PostRecord
// itself is never persisted.
type ReplyLogEntry struct {
	ID        int
	Permalink string
	PostText  string
	ReplyText string
	Outcome   string
	CreatedAt time.Time
}
