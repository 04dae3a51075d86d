package rag

import "github.com/docsage/docsage/internal/model"

// DefaultScoreThreshold is the relevance bar a search hit must clear to be
// treated as confident context.
const DefaultScoreThreshold = 0.5

// FilterResult says whether retrieved context should be used at all and
// which results made the cut.
type FilterResult struct {
	UseContext bool
	Selected   []model.SearchResult
}

// FilterByScore applies the relevance threshold with a graceful-degradation
// fallback: when nothing clears the bar but the index returned something,
// ALL low-confidence results are kept rather than none (or just the best
// one) — for small corpora partial context beats no context. That the
// fallback keeps every sub-threshold result is deliberate product policy;
// do not narrow it here.
func FilterByScore(results []model.SearchResult, threshold float32) FilterResult {
	if len(results) == 0 {
		return FilterResult{UseContext: false}
	}
	selected := make([]model.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= threshold {
			selected = append(selected, res)
		}
	}
	if len(selected) == 0 {
		// low-confidence fallback
		selected = results
	}
	return FilterResult{UseContext: true, Selected: selected}
}
