package models

import "time"

// Well-known roles. Role is an open tag; callers may use any other string.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role      string         `json:"role" yaml:"role"`
	Content   string         `json:"content" yaml:"content"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

// ContextStats reports conversation store occupancy.
type ContextStats struct {
	TotalTurns         int     `json:"total_turns"`
	CurrentTurns       int     `json:"current_turns"`
	ContextTokens      int     `json:"context_length_tokens"`
	ContextPercent     float64 `json:"context_length_percentage"`
	SummarizationCount int     `json:"summarization_count"`
	HasSummary         bool    `json:"has_summary"`
}

// ExportMetadata is the header of an exported conversation.
type ExportMetadata struct {
	ConversationID     string    `json:"conversation_id" yaml:"conversation_id"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
	TotalTurns         int       `json:"total_turns" yaml:"total_turns"`
	SummarizationCount int       `json:"summarization_count" yaml:"summarization_count"`
}

// Export is a full snapshot of a conversation store.
type Export struct {
	Metadata       ExportMetadata `json:"metadata" yaml:"metadata"`
	ContextSummary string         `json:"context_summary" yaml:"context_summary"`
	Conversation   []Turn         `json:"conversation" yaml:"conversation"`
}
