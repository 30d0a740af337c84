package llm

import (
	"errors"
	"fmt"
	"os"
)

// ErrNoModelConfig is the only condition in the matching subsystem that
// surfaces as a hard error: no usable model configuration of the required
// type could be resolved and no fallback applies.
var ErrNoModelConfig = errors.New("no usable model configuration")

// ModelType distinguishes chat from embedding configurations.
type ModelType string

const (
	ModelTypeChat      ModelType = "chat"
	ModelTypeEmbedding ModelType = "embedding"
)

// ModelConfig is one provider configuration record, owned by the surrounding
// content-management layer and read-only during a match.
type ModelConfig struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type ModelType `json:"type"`

	// BaseURL points at an OpenAI-compatible endpoint; empty means the
	// provider default.
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Dimension is the vector size for embedding configs.
	Dimension int `json:"dimension,omitempty"`

	IsDefault bool `json:"is_default,omitempty"`
}

// ResolveAPIKey returns the record's key, falling back to OPENAI_API_KEY.
func (c *ModelConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Registry resolves model configurations by id or by type default. It is
// populated once per process and read-only afterwards.
type Registry struct {
	configs []ModelConfig
}

// NewRegistry creates a registry over the given configuration records.
func NewRegistry(configs ...ModelConfig) *Registry {
	return &Registry{configs: configs}
}

// Add appends configuration records. Not safe to call once matching has
// started; registries are built during startup.
func (r *Registry) Add(configs ...ModelConfig) {
	r.configs = append(r.configs, configs...)
}

// Resolve finds a configuration of the required type. A non-empty id must
// match exactly (and the record must be of the required type); an empty id
// resolves the default of that type, falling back to the first record of the
// type when none is flagged default. Absence yields ErrNoModelConfig.
func (r *Registry) Resolve(id string, typ ModelType) (*ModelConfig, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no registry configured", ErrNoModelConfig)
	}

	if id != "" {
		for i := range r.configs {
			if r.configs[i].ID == id {
				if r.configs[i].Type != typ {
					return nil, fmt.Errorf("%w: config %q is type %s, need %s",
						ErrNoModelConfig, id, r.configs[i].Type, typ)
				}
				return &r.configs[i], nil
			}
		}
		return nil, fmt.Errorf("%w: config %q not found", ErrNoModelConfig, id)
	}

	var first *ModelConfig
	for i := range r.configs {
		if r.configs[i].Type != typ {
			continue
		}
		if r.configs[i].IsDefault {
			return &r.configs[i], nil
		}
		if first == nil {
			first = &r.configs[i]
		}
	}
	if first != nil {
		return first, nil
	}
	return nil, fmt.Errorf("%w: no %s configuration available", ErrNoModelConfig, typ)
}
