// Package llm provides a provider-agnostic chat interface with an OpenAI
// implementation and deterministic mocks for testing, plus the model
// configuration registry that strategies resolve chat and embedding
// configurations from.
package llm

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage captures token counts and latency for a single model call.
type Usage struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	LatencyMS        int64 `json:"latency_ms"`
}

// ChatResult is the text and accounting returned by one chat call.
type ChatResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// ResponseSchema describes the structured JSON shape requested from a model.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// LLM defines the interface for chat models. Implementations must be
// stateless and safe for concurrent use.
type LLM interface {
	// Chat sends the full message array and returns the model's reply.
	Chat(ctx context.Context, messages []Message) (*ChatResult, error)

	// ChatJSON sends the message array requesting a structured JSON response
	// conforming to the given schema. The returned text is the raw JSON.
	ChatJSON(ctx context.Context, messages []Message, schema ResponseSchema) (*ChatResult, error)
}
