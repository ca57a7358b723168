// Package models defines the core domain types for darter.
package models

import "time"

// ItemKind classifies a launchable item.
type ItemKind string

const (
	KindApp          ItemKind = "app"
	KindAction       ItemKind = "action"
	KindPlugin       ItemKind = "plugin"
	KindURL          ItemKind = "url"
	KindShellCommand ItemKind = "shell"
	KindMath         ItemKind = "math"
	KindHistory      ItemKind = "history"
	KindClipboard    ItemKind = "clipboard"
	KindWebSearch    ItemKind = "websearch"
)

// MaxRecentTerms bounds the learned-shortcut list kept per history item.
const MaxRecentTerms = 5

// HistoryItem records past selections of one item.
type HistoryItem struct {
	ID          string    `json:"id"`
	Kind        ItemKind  `json:"kind"`
	Count       uint64    `json:"count"`
	LastUsed    time.Time `json:"last_used"`
	RecentTerms []string  `json:"recent_terms,omitempty"` // most-recent-last, max 5
}

// Touch registers a selection made with the given search term.
// Terms are deduplicated on insert; the oldest term is evicted beyond the cap.
func (h *HistoryItem) Touch(term string, now time.Time) {
	h.Count++
	h.LastUsed = now
	if term == "" {
		return
	}
	for i, t := range h.RecentTerms {
		if t == term {
			h.RecentTerms = append(h.RecentTerms[:i], h.RecentTerms[i+1:]...)
			break
		}
	}
	h.RecentTerms = append(h.RecentTerms, term)
	if len(h.RecentTerms) > MaxRecentTerms {
		h.RecentTerms = h.RecentTerms[len(h.RecentTerms)-MaxRecentTerms:]
	}
}

// SourceItem is a candidate offered by a result source. The ranking pipeline
// references these; it never owns or mutates them.
type SourceItem struct {
	ID          string   `json:"id"`
	Kind        ItemKind `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Verb        string   `json:"verb,omitempty"`
	Exec        []string `json:"exec,omitempty"`
	PluginID    string   `json:"plugin_id,omitempty"`
}

// MatchType classifies how a query relates to a target string, ordered from
// weakest to strongest.
type MatchType int

const (
	MatchNone MatchType = iota
	MatchFuzzy
	MatchPrefix
	MatchExact
)

func (m MatchType) String() string {
	switch m {
	case MatchFuzzy:
		return "fuzzy"
	case MatchPrefix:
		return "prefix"
	case MatchExact:
		return "exact"
	default:
		return "none"
	}
}

// Tier is a coarse ranking bucket applied before intra-tier score sorting.
type Tier int

const (
	TierIntent Tier = iota
	TierPrimary
	TierSecondary
	TierFallback
)

// RankedCandidate is a transient scoring record built per query cycle.
type RankedCandidate struct {
	Item       *SourceItem
	FuzzyScore float64
	MatchType  MatchType
	Frecency   float64
	Composite  float64
	Spans      [][2]int // matched rune ranges, presentation only
	Tier       Tier
}
