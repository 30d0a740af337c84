package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/Storyloom-Labs/intrigue/internal/script"
)

// KeywordStrategy scores clues by counting trigger keywords that occur as
// case-insensitive substrings of the player message. It needs no provider and
// is the degradation target for the other strategies.
type KeywordStrategy struct{}

// NewKeywordStrategy creates the keyword matcher.
func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

// Match scores each clue as matched/total keywords. Clues that match nothing
// are omitted entirely; clues without keywords are skipped with a debug note.
func (s *KeywordStrategy) Match(ctx context.Context, clues []script.Clue, req *Request) ([]Result, *StrategyDebug, error) {
	message := req.NormalizedMessage()
	debug := &StrategyDebug{Strategy: StrategyKeyword}

	var results []Result
	for _, clue := range clues {
		if len(clue.TriggerKeywords) == 0 {
			debug.Notes = append(debug.Notes,
				fmt.Sprintf("clue %s: no trigger keywords defined", clue.ID))
			continue
		}

		var matched []string
		for _, keyword := range clue.TriggerKeywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(message, strings.ToLower(keyword)) {
				matched = append(matched, keyword)
			}
		}
		if len(matched) == 0 {
			continue
		}

		score := float64(len(matched)) / float64(len(clue.TriggerKeywords))
		results = append(results, Result{
			Clue:            clue,
			Score:           score,
			MatchedKeywords: matched,
			Reasons: []string{fmt.Sprintf("matched %d of %d keywords: %s",
				len(matched), len(clue.TriggerKeywords), strings.Join(matched, ", "))},
		})
	}

	sortByScore(results)
	return results, debug, nil
}
