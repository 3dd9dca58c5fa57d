// Package intake implements the conversational slot-filling flow that turns
// caller utterances into persisted leads.
package intake

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient produces one assistant reply for a system prompt plus history.
type LLMClient interface {
	Complete(ctx context.Context, system string, history []ChatMessage) (string, error)
}
