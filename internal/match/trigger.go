package match

// DefaultThreshold is the score a result must reach to trigger when the
// request carries no override.
const DefaultThreshold = 0.5

// ApplyTriggerPolicy marks the triggered subset of a scored result list and
// returns it sorted by descending score. Keyword and embedding results
// trigger independently: every result at or above the threshold fires. The
// LLM strategy acts as a holistic judge rather than a per-clue scorer, so
// only its single best result at or above the threshold fires.
func ApplyTriggerPolicy(results []Result, threshold float64, strategy StrategyType) []Result {
	sortByScore(results)

	switch strategy {
	case StrategyLLM:
		for i := range results {
			if results[i].Score >= threshold {
				results[i].IsTriggered = true
				break
			}
		}
	default:
		for i := range results {
			results[i].IsTriggered = results[i].Score >= threshold
		}
	}

	return results
}

// Triggered filters a result list down to the triggered subset, preserving
// order.
func Triggered(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.IsTriggered {
			out = append(out, r)
		}
	}
	return out
}

// ResolveThreshold returns the request's override or the default.
func ResolveThreshold(req *Request) float64 {
	if req != nil && req.Threshold != nil {
		return *req.Threshold
	}
	return DefaultThreshold
}
