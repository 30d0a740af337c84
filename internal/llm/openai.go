package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAILLM implements the LLM interface against any OpenAI-compatible
// endpoint described by a chat ModelConfig.
type OpenAILLM struct {
	client openai.Client
	config ModelConfig
}

// NewOpenAILLM creates an OpenAI-backed chat implementation from a resolved
// chat configuration. Returns an error if the key or model name is missing.
func NewOpenAILLM(config ModelConfig) (*OpenAILLM, error) {
	apiKey := config.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set OPENAI_API_KEY or provide in config)", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAILLM{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Chat sends the message array and returns the reply with usage accounting.
func (o *OpenAILLM) Chat(ctx context.Context, messages []Message) (*ChatResult, error) {
	return o.complete(ctx, messages, nil)
}

// ChatJSON sends the message array requesting a structured JSON response.
func (o *OpenAILLM) ChatJSON(ctx context.Context, messages []Message, schema ResponseSchema) (*ChatResult, error) {
	return o.complete(ctx, messages, &schema)
}

func (o *OpenAILLM) complete(ctx context.Context, messages []Message, schema *ResponseSchema) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: message array cannot be empty", ErrInvalidConfig)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.config.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	if o.config.Temperature > 0 {
		params.Temperature = openai.Float(o.config.Temperature)
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}

	if schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schema.Name,
					Schema: schema.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	return &ChatResult{
		Text:  completion.Choices[0].Message.Content,
		Model: o.config.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
			LatencyMS:        time.Since(start).Milliseconds(),
		},
	}, nil
}
