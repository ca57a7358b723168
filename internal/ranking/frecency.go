// Package ranking turns raw queries and historical usage into an ordered,
// deduplicated result list.
package ranking

import (
	"sort"
	"strings"
	"time"

	"darter/internal/models"
)

// Composite score weights. Fuzzy quality dominates (0-1000); exact/prefix
// learned-shortcut bonuses are large but bounded, and frecency is capped so
// an overused item cannot eclipse an exact textual match of another.
const (
	fuzzyWeight    = 1000.0
	exactBonus     = 500.0
	prefixBonus    = 200.0
	frecencyFactor = 5.0
	frecencyCap    = 300.0
)

// RecencyMultiplier weights usage by how recently the item was last selected.
func RecencyMultiplier(lastUsed, now time.Time) float64 {
	age := now.Sub(lastUsed)
	switch {
	case age < time.Hour:
		return 4
	case age < 24*time.Hour:
		return 2
	case age < 168*time.Hour:
		return 1
	default:
		return 0.5
	}
}

// Frecency blends selection count with recency.
func Frecency(count uint64, lastUsed, now time.Time) float64 {
	return float64(count) * RecencyMultiplier(lastUsed, now)
}

// ClassifyMatch compares a query against a target string, case-insensitively.
func ClassifyMatch(query, target string) models.MatchType {
	if query == "" || target == "" {
		return models.MatchNone
	}
	q := strings.ToLower(query)
	t := strings.ToLower(target)
	switch {
	case q == t:
		return models.MatchExact
	case strings.HasPrefix(t, q):
		return models.MatchPrefix
	default:
		return models.MatchFuzzy
	}
}

// BestTermMatch returns the strongest match type of the query against any of
// the item's learned terms.
func BestTermMatch(query string, terms []string) models.MatchType {
	best := models.MatchNone
	for _, term := range terms {
		if m := ClassifyMatch(query, term); m > best {
			best = m
		}
	}
	return best
}

// Composite computes the blended ranking score.
func Composite(matchType models.MatchType, fuzzyScore, frecency float64) float64 {
	score := fuzzyScore * fuzzyWeight
	switch matchType {
	case models.MatchExact:
		score += exactBonus
	case models.MatchPrefix:
		score += prefixBonus
	}
	bonus := frecency * frecencyFactor
	if bonus > frecencyCap {
		bonus = frecencyCap
	}
	return score + bonus
}

// sortCandidates orders by tier, then descending composite. The sort is
// stable: ties keep the pipeline's merge insertion order.
func sortCandidates(cands []models.RankedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Tier != cands[j].Tier {
			return cands[i].Tier < cands[j].Tier
		}
		return cands[i].Composite > cands[j].Composite
	})
}
