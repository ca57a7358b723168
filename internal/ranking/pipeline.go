package ranking

import (
	"context"
	"log"
	"strings"
	"time"

	"darter/internal/models"
)

// Source supplies candidates for a query. Sources are consulted in a fixed
// order; that order is the tie-break for equal scores.
type Source interface {
	Name() string
	Collect(ctx context.Context, query string) ([]models.SourceItem, error)
}

// HistoryProvider exposes read-only history snapshots to the pipeline.
type HistoryProvider interface {
	Snapshot() ([]models.HistoryItem, error)
	Recent(limit int) ([]models.HistoryItem, error)
}

// Pipeline merges candidates from every active source, scores them and
// produces the final deduplicated, tiered, truncated list.
type Pipeline struct {
	sources []Source
	matcher Matcher
	history HistoryProvider

	MaxDisplayedResults int
	MaxRecentItems      int

	now func() time.Time
}

// NewPipeline builds a pipeline over the given sources, in priority order.
func NewPipeline(sources []Source, matcher Matcher, history HistoryProvider) *Pipeline {
	return &Pipeline{
		sources:             sources,
		matcher:             matcher,
		history:             history,
		MaxDisplayedResults: 15,
		MaxRecentItems:      20,
		now:                 time.Now,
	}
}

// Query runs one ranking cycle. It never fails: erroring sources are skipped
// for the cycle and an empty list is a valid answer.
func (p *Pipeline) Query(ctx context.Context, query string) []models.RankedCandidate {
	if query == "" {
		return p.recentItems()
	}

	now := p.now()
	byID := make(map[string]models.HistoryItem)
	if p.history != nil {
		snapshot, err := p.history.Snapshot()
		if err != nil {
			log.Printf("Ranking: history snapshot unavailable: %v", err)
		}
		for _, item := range snapshot {
			byID[item.ID] = item
		}
	}

	var cands []models.RankedCandidate
	seen := make(map[string]int) // item id -> index in cands
	for _, src := range p.sources {
		items, err := src.Collect(ctx, query)
		if err != nil {
			log.Printf("Ranking: source %s failed, skipping this cycle: %v", src.Name(), err)
			continue
		}
		for i := range items {
			cand := p.score(query, &items[i], byID, now)
			if idx, dup := seen[cand.Item.ID]; dup {
				// Keep the higher-scoring occurrence; first wins ties.
				if cand.Composite > cands[idx].Composite {
					cands[idx] = cand
				}
				continue
			}
			seen[cand.Item.ID] = len(cands)
			cands = append(cands, cand)
		}
	}

	sortCandidates(cands)
	if len(cands) > p.MaxDisplayedResults {
		cands = cands[:p.MaxDisplayedResults]
	}
	return cands
}

// score builds the transient scoring record for one candidate.
func (p *Pipeline) score(query string, item *models.SourceItem, hist map[string]models.HistoryItem, now time.Time) models.RankedCandidate {
	cand := models.RankedCandidate{Item: item, Tier: tierFor(item.Kind)}

	cand.FuzzyScore, cand.Spans = p.matcher.Score(query, item.Name)
	cand.MatchType = ClassifyMatch(query, item.Name)

	if h, ok := hist[item.ID]; ok {
		cand.Frecency = Frecency(h.Count, h.LastUsed, now)
		// Learned shortcuts: a recent-term match can upgrade both the match
		// type and the fuzzy quality past what the visible name gives.
		for _, term := range h.RecentTerms {
			if m := ClassifyMatch(query, term); m > cand.MatchType {
				cand.MatchType = m
			}
			if s, _ := p.matcher.Score(query, term); s > cand.FuzzyScore {
				cand.FuzzyScore = s
			}
		}
	}

	// Intent results carry no usable fuzzy relation to the raw query.
	if cand.Tier == models.TierIntent {
		cand.FuzzyScore = 1
		cand.MatchType = models.MatchNone
		cand.Spans = nil
	}

	cand.Composite = Composite(cand.MatchType, cand.FuzzyScore, cand.Frecency)
	return cand
}

// recentItems is the empty-query view: most recent history, no scoring.
func (p *Pipeline) recentItems() []models.RankedCandidate {
	if p.history == nil {
		return nil
	}
	items, err := p.history.Recent(p.MaxRecentItems)
	if err != nil {
		log.Printf("Ranking: recent history unavailable: %v", err)
		return nil
	}
	cands := make([]models.RankedCandidate, 0, len(items))
	for _, h := range items {
		item := &models.SourceItem{ID: h.ID, Kind: h.Kind, Name: displayName(h.ID)}
		cands = append(cands, models.RankedCandidate{Item: item, Tier: models.TierFallback})
	}
	return cands
}

// displayName strips the kind prefix from a stored id ("app:firefox" ->
// "firefox") so history-backed rows read like the item, not its key.
func displayName(id string) string {
	if _, rest, ok := strings.Cut(id, ":"); ok && rest != "" {
		return rest
	}
	return id
}

// tierFor maps item kinds to coarse ranking buckets. Intent-detected results
// always sit on top, then primary launchables, then history-like sources,
// then web fallback.
func tierFor(kind models.ItemKind) models.Tier {
	switch kind {
	case models.KindMath, models.KindURL, models.KindShellCommand:
		return models.TierIntent
	case models.KindApp, models.KindAction, models.KindPlugin:
		return models.TierPrimary
	case models.KindHistory, models.KindClipboard:
		return models.TierSecondary
	default:
		return models.TierFallback
	}
}
