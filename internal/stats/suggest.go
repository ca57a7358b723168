package stats

import (
	"sort"
	"time"

	"darter/internal/models"
)

// Suggestion annotates an item the user is statistically likely to want next.
// Suggestions affect UI prominence only, never ranking math.
type Suggestion struct {
	ID         string
	Confidence float64
	High       bool
}

// UsageSample is one historical selection event fed into the suggester.
type UsageSample struct {
	ID   string
	Time time.Time
	Prev string // id selected immediately before this one, if any
}

// Suggest combines a Wilson usage signal, a decayed time-of-day affinity and
// a selection-sequence signal into ranked suggestions for the current moment.
func Suggest(items []models.HistoryItem, samples []UsageSample, now time.Time, lastSelected string) []Suggestion {
	if len(items) == 0 {
		return nil
	}

	var totalCount uint64
	for _, it := range items {
		totalCount += it.Count
	}

	// Per-item and pairwise tallies from the sample log.
	nowMinute := now.Hour()*60 + now.Minute()
	perID := make(map[string]int)
	inWindow := make(map[string]float64)
	windowWeight := make(map[string]float64)
	pairAB := make(map[string]int)
	for _, s := range samples {
		perID[s.ID]++
		w := DecayWeight(s.Time, now, 14)
		windowWeight[s.ID] += w
		if WithinTimeWindow(nowMinute, s.Time.Hour()*60+s.Time.Minute(), 90) {
			inWindow[s.ID] += w
		}
		if s.Prev != "" && s.Prev == lastSelected {
			pairAB[s.ID]++
		}
	}
	prevCount := perID[lastSelected]

	var out []Suggestion
	for _, it := range items {
		usage := WilsonLowerBound(int(it.Count), int(totalCount), DefaultZ)

		var timeAffinity float64
		if windowWeight[it.ID] > 0 {
			timeAffinity = inWindow[it.ID] / windowWeight[it.ID]
		}

		var seq float64
		if lastSelected != "" && lastSelected != it.ID {
			seq = SequenceConfidence(pairAB[it.ID], prevCount, perID[it.ID], len(samples))
		}

		conf := CompositeConfidence([]WeightedScore{
			{Score: usage, Weight: 1},
			{Score: timeAffinity, Weight: 1.5},
			{Score: seq, Weight: 2},
		})
		if conf < SuggestionThreshold {
			continue
		}
		out = append(out, Suggestion{ID: it.ID, Confidence: conf, High: conf >= HighConfidence})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
