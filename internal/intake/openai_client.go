package intake

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds settings for the OpenAI chat backend.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient constructs an OpenAI-backed LLM client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: float32(cfg.Temperature),
	}
}

// Complete sends the system prompt and history and returns the assistant reply.
func (c *OpenAIClient) Complete(ctx context.Context, system string, history []ChatMessage) (string, error) {
	if c.client == nil {
		return "", errors.New("intake: openai client not initialized")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("intake: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("intake: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
