package ranking

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Matcher scores a query against candidate text, normalized to [0,1], and
// reports matched rune ranges for highlighting.
type Matcher interface {
	Score(query, target string) (float64, [][2]int)
}

// FuzzyMatcher adapts sahilm/fuzzy to the Matcher interface.
type FuzzyMatcher struct{}

// NewMatcher returns the default fuzzy matcher.
func NewMatcher() *FuzzyMatcher {
	return &FuzzyMatcher{}
}

// Score matches query against target. No match or an empty query scores 0.
// The library score is normalized against the best score the same query
// achieves on itself, so an exact match is 1.0.
func (m *FuzzyMatcher) Score(query, target string) (float64, [][2]int) {
	if query == "" || target == "" {
		return 0, nil
	}
	matches := fuzzy.Find(query, []string{target})
	if len(matches) == 0 {
		return 0, nil
	}
	match := matches[0]

	best := selfScore(query)
	score := float64(match.Score) / float64(best)
	// Library scores can be negative for poor matches; clamp into [0,1].
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	// Any match at all counts for something.
	if score == 0 {
		score = 0.05
	}
	return score, spansFromIndexes(match.MatchedIndexes)
}

// selfScore is the score sahilm/fuzzy assigns to a string matched against
// itself: the upper bound for this query.
func selfScore(query string) int {
	ref := fuzzy.Find(strings.ToLower(query), []string{strings.ToLower(query)})
	if len(ref) == 0 || ref[0].Score <= 0 {
		return 1
	}
	return ref[0].Score
}

// spansFromIndexes collapses matched indexes into contiguous [start,end)
// ranges.
func spansFromIndexes(indexes []int) [][2]int {
	if len(indexes) == 0 {
		return nil
	}
	var spans [][2]int
	start := indexes[0]
	prev := indexes[0]
	for _, idx := range indexes[1:] {
		if idx != prev+1 {
			spans = append(spans, [2]int{start, prev + 1})
			start = idx
		}
		prev = idx
	}
	spans = append(spans, [2]int{start, prev + 1})
	return spans
}
