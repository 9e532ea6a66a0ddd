package store

import (
	"time"

	"nau-assistant/pkg/rag/search"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a session log. Seq orders messages within a
// session; Timestamp is informational only.
type Message struct {
	Seq       int64     `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`

	// Set on the assistant message that asks a scripted follow-up question.
	IsFollowUp bool   `json:"follow_up,omitempty"`
	FollowUpID string `json:"follow_up_id,omitempty"`

	// Set on a user message replying to a follow-up.
	FollowUpRef string `json:"follow_up_to,omitempty"`

	// Set on an assistant message that resolved a follow-up reply.
	IsFollowUpResponse bool `json:"is_follow_up_response,omitempty"`

	OriginalQuestion string               `json:"original_question,omitempty"`
	RetrievedChunks  []search.ScoredChunk `json:"retrieved_chunks,omitempty"`
}

// Summary is the list view of a session.
type Summary struct {
	ID        string    `json:"id"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}
