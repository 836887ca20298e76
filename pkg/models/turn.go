package models

import "time"

// RawConversationTurn is one captured conversational exchange.
// Immutable once created; the core only reads it.
type RawConversationTurn struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	UserMessage      string    `json:"user_message" db:"user_message"`
	AssistantMessage string    `json:"assistant_message" db:"assistant_message"`
	ConversationID   string    `json:"conversation_id,omitempty" db:"conversation_id"`
	Topics           []string  `json:"topics,omitempty"`
	Entities         []string  `json:"entities,omitempty"`
}
