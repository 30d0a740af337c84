package match

import (
	"testing"

	"github.com/Storyloom-Labs/intrigue/internal/script"
)

func scored(id string, score float64) Result {
	return Result{Clue: script.Clue{ID: id}, Score: score}
}

func triggeredIDs(results []Result) []string {
	var ids []string
	for _, r := range Triggered(results) {
		ids = append(ids, r.Clue.ID)
	}
	return ids
}

func TestTriggerMultiForKeyword(t *testing.T) {
	results := []Result{
		scored("a", 0.9),
		scored("b", 0.5),
		scored("c", 0.4),
	}

	out := ApplyTriggerPolicy(results, DefaultThreshold, StrategyKeyword)

	ids := triggeredIDs(out)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected a and b triggered at threshold 0.5, got %v", ids)
	}
}

func TestTriggerMultiForEmbedding(t *testing.T) {
	results := []Result{
		scored("a", 0.8),
		scored("b", 0.75),
	}

	out := ApplyTriggerPolicy(results, 0.7, StrategyEmbedding)
	if len(Triggered(out)) != 2 {
		t.Errorf("embedding policy must multi-trigger, got %v", triggeredIDs(out))
	}
}

func TestTriggerSingleBestForLLM(t *testing.T) {
	results := []Result{
		scored("c2", 0.2),
		scored("c1", 0.9),
		scored("c3", 0.7),
	}

	out := ApplyTriggerPolicy(results, DefaultThreshold, StrategyLLM)

	ids := triggeredIDs(out)
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("LLM policy must trigger only the single best clue, got %v", ids)
	}
}

func TestTriggerNothingBelowThreshold(t *testing.T) {
	results := []Result{scored("a", 0.3), scored("b", 0.1)}

	for _, strategy := range []StrategyType{StrategyKeyword, StrategyEmbedding, StrategyLLM} {
		out := ApplyTriggerPolicy(results, DefaultThreshold, strategy)
		if len(Triggered(out)) != 0 {
			t.Errorf("%s: nothing below threshold may trigger, got %v", strategy, triggeredIDs(out))
		}
	}
}

func TestTriggerExactThresholdFires(t *testing.T) {
	out := ApplyTriggerPolicy([]Result{scored("a", 0.5)}, 0.5, StrategyKeyword)
	if len(Triggered(out)) != 1 {
		t.Error("a score exactly at threshold must trigger")
	}
}

func TestResolveThreshold(t *testing.T) {
	if got := ResolveThreshold(&Request{}); got != DefaultThreshold {
		t.Errorf("expected default threshold, got %f", got)
	}

	override := 0.8
	if got := ResolveThreshold(&Request{Threshold: &override}); got != 0.8 {
		t.Errorf("expected override 0.8, got %f", got)
	}
}
