package llm

import (
	"errors"
	"testing"
)

func testConfigs() []ModelConfig {
	return []ModelConfig{
		{ID: "chat-1", Type: ModelTypeChat, Model: "gpt-4o"},
		{ID: "chat-2", Type: ModelTypeChat, Model: "gpt-4o-mini", IsDefault: true},
		{ID: "embed-1", Type: ModelTypeEmbedding, Model: "text-embedding-3-large", Dimension: 3072},
	}
}

func TestResolveByID(t *testing.T) {
	r := NewRegistry(testConfigs()...)

	cfg, err := r.Resolve("chat-1", ModelTypeChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", cfg.Model)
	}
}

func TestResolveDefault(t *testing.T) {
	r := NewRegistry(testConfigs()...)

	cfg, err := r.Resolve("", ModelTypeChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != "chat-2" {
		t.Errorf("expected the flagged default chat-2, got %s", cfg.ID)
	}
}

func TestResolveFirstOfTypeWithoutDefault(t *testing.T) {
	r := NewRegistry(testConfigs()...)

	cfg, err := r.Resolve("", ModelTypeEmbedding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != "embed-1" {
		t.Errorf("expected embed-1, got %s", cfg.ID)
	}
}

func TestResolveErrors(t *testing.T) {
	r := NewRegistry(testConfigs()...)

	tests := []struct {
		name string
		id   string
		typ  ModelType
	}{
		{"unknown id", "nope", ModelTypeChat},
		{"type mismatch", "embed-1", ModelTypeChat},
		{"no config of type", "", ModelType("speech")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(tt.id, tt.typ); !errors.Is(err, ErrNoModelConfig) {
				t.Errorf("expected ErrNoModelConfig, got %v", err)
			}
		})
	}
}

func TestResolveNilRegistry(t *testing.T) {
	var r *Registry
	if _, err := r.Resolve("", ModelTypeChat); !errors.Is(err, ErrNoModelConfig) {
		t.Errorf("expected ErrNoModelConfig on nil registry, got %v", err)
	}
}
