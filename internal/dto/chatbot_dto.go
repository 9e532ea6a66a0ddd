package dto

import (
	"time"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

type SessionSummaryResponse struct {
	Id        string    `json:"id"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatMessageResponse struct {
	Seq                int64     `json:"seq"`
	Role               string    `json:"role"`
	Content            string    `json:"content"`
	Timestamp          time.Time `json:"timestamp"`
	Sources            []string  `json:"sources,omitempty"`
	FollowUp           bool      `json:"follow_up,omitempty"`
	FollowUpId         string    `json:"follow_up_id,omitempty"`
	FollowUpTo         string    `json:"follow_up_to,omitempty"`
	IsFollowUpResponse bool      `json:"is_follow_up_response,omitempty"`
	OriginalQuestion   string    `json:"original_question,omitempty"`
	RetrievedChunks    int       `json:"retrieved_chunks,omitempty"`
}

type SendChatRequest struct {
	ChatId     string `json:"chat_id" validate:"max=128"`
	Query      string `json:"query" validate:"required,max=4000"`
	FollowUpTo string `json:"follow_up_to,omitempty" validate:"max=128"`
}

type SendChatResponse struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	ChatId     string   `json:"chat_id"`
	FollowUp   string   `json:"follow_up,omitempty"`
	FollowUpId string   `json:"follow_up_id,omitempty"`
}

type DeleteSessionResponse struct {
	Success bool `json:"success"`
}

// ChatSocketRequest is one inbound websocket frame.
type ChatSocketRequest struct {
	Query      string `json:"query"`
	FollowUpTo string `json:"follow_up_to,omitempty"`
}

// ChatSocketFrame is one outbound websocket frame.
type ChatSocketFrame struct {
	Type  string                 `json:"type"` // "answer", "error" or "index_refreshed"
	Data  *SendChatResponse      `json:"data,omitempty"`
	Error string                 `json:"error,omitempty"`
	Index *IndexRefreshedMessage `json:"index,omitempty"`
}
