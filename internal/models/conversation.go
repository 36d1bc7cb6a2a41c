package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who produced a message within a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleFunction  MessageRole = "function"
)

// Conversation is a user's chat session with the assistant. The context
// summary is stored as an ordered list of segments; new segments are
// appended on compression and the list is rendered to a single string only
// when the context window is built.
type Conversation struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Title            string    `json:"title,omitempty"`
	SummarySegments  []string  `json:"summary_segments,omitempty"`
	CompressedAtTurn int       `json:"compressed_at_turn"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ContextSummary renders the accreted summary segments into the single
// string form used in the context window. Empty when nothing has been
// compressed yet.
func (c *Conversation) ContextSummary() string {
	if len(c.SummarySegments) == 0 {
		return ""
	}
	out := c.SummarySegments[0]
	for _, seg := range c.SummarySegments[1:] {
		out += " | " + seg
	}
	return out
}

// Message is one turn in a conversation's append-only log. Function-role
// messages carry the function name, validated arguments, and the result
// envelope; all other roles carry only text content. Messages are immutable
// once created and ordered by creation time.
type Message struct {
	ID               uuid.UUID      `json:"id"`
	ConversationID   uuid.UUID      `json:"conversation_id"`
	Role             MessageRole    `json:"role"`
	Content          string         `json:"content"`
	FunctionName     string         `json:"function_name,omitempty"`
	FunctionArgs     map[string]any `json:"function_args,omitempty"`
	FunctionResponse map[string]any `json:"function_response,omitempty"`
	TokenCount       int            `json:"token_count"`
	CreatedAt        time.Time      `json:"created_at"`
}
