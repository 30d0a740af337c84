package llm

import (
	"context"
)

// MockLLM is a deterministic LLM implementation for testing. It records the
// messages it receives and returns fixed responses.
type MockLLM struct {
	// Response is the text returned by Chat and ChatJSON.
	Response string

	// Error, if set, is returned instead of a response.
	Error error

	// Usage is returned verbatim on the result.
	Usage Usage

	// LastMessages stores the most recent message array.
	LastMessages []Message

	// LastSchema stores the schema from the most recent ChatJSON call.
	LastSchema *ResponseSchema

	// Calls counts invocations across both methods.
	Calls int
}

// NewMockLLM creates a mock with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock that always fails.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Chat returns the configured response or error.
func (m *MockLLM) Chat(ctx context.Context, messages []Message) (*ChatResult, error) {
	m.Calls++
	m.LastMessages = messages
	if m.Error != nil {
		return nil, m.Error
	}
	return &ChatResult{Text: m.Response, Model: "mock", Usage: m.Usage}, nil
}

// ChatJSON returns the configured response or error, recording the schema.
func (m *MockLLM) ChatJSON(ctx context.Context, messages []Message, schema ResponseSchema) (*ChatResult, error) {
	m.Calls++
	m.LastMessages = messages
	m.LastSchema = &schema
	if m.Error != nil {
		return nil, m.Error
	}
	return &ChatResult{Text: m.Response, Model: "mock", Usage: m.Usage}, nil
}
