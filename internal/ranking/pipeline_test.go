package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"darter/internal/models"
)

type fakeHistory struct {
	items []models.HistoryItem
	err   error
}

func (f *fakeHistory) Snapshot() ([]models.HistoryItem, error) { return f.items, f.err }

func (f *fakeHistory) Recent(limit int) ([]models.HistoryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Collect(context.Context, string) ([]models.SourceItem, error) {
	return nil, errors.New("source exploded")
}

func appSource(items ...models.SourceItem) Source {
	return NewSliceSource("apps", items)
}

func TestEmptyQueryReturnsRecentsUnscored(t *testing.T) {
	now := time.Now()
	hist := &fakeHistory{items: []models.HistoryItem{
		{ID: "app:firefox", Kind: models.KindApp, Count: 10, LastUsed: now},
	}}
	p := NewPipeline(nil, NewMatcher(), hist)
	p.MaxRecentItems = 20

	got := p.Query(context.Background(), "")
	if len(got) != 1 {
		t.Fatalf("Expected 1 recent item, got %d", len(got))
	}
	if got[0].Item.ID != "app:firefox" {
		t.Errorf("Expected app:firefox, got %s", got[0].Item.ID)
	}
	if got[0].Item.Name != "firefox" {
		t.Errorf("Recents must show the item name, not the raw id: %q", got[0].Item.Name)
	}
	if got[0].Composite != 0 || got[0].FuzzyScore != 0 {
		t.Errorf("Recent items must not be scored: %+v", got[0])
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"app:firefox":     "firefox",
		"plugin:emoji":    "emoji",
		"demo:Copy thing": "Copy thing",
		"firefox":         "firefox",
		"trailing:":       "trailing:",
	}
	for id, want := range cases {
		if got := displayName(id); got != want {
			t.Errorf("displayName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestLearnedShortcutBeatsRawExactName(t *testing.T) {
	now := time.Now()
	hist := &fakeHistory{items: []models.HistoryItem{
		{ID: "firefox", Kind: models.KindApp, Count: 10, LastUsed: now, RecentTerms: []string{"ff"}},
	}}
	p := NewPipeline([]Source{appSource(
		models.SourceItem{ID: "ff", Kind: models.KindApp, Name: "ff"},
		models.SourceItem{ID: "firefox", Kind: models.KindApp, Name: "Firefox"},
	)}, NewMatcher(), hist)

	got := p.Query(context.Background(), "ff")
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(got))
	}
	if got[0].Item.ID != "firefox" {
		t.Errorf("Expected firefox first, got %s (%f vs %f)", got[0].Item.ID, got[0].Composite, got[1].Composite)
	}
	if got[0].MatchType != models.MatchExact || got[1].MatchType != models.MatchExact {
		t.Errorf("Both should classify Exact: %v, %v", got[0].MatchType, got[1].MatchType)
	}
}

func TestIntentForcedToTopTier(t *testing.T) {
	now := time.Now()
	hist := &fakeHistory{items: []models.HistoryItem{
		{ID: "calc-app", Kind: models.KindApp, Count: 500, LastUsed: now},
	}}
	intentItem := models.SourceItem{ID: "math:2+2", Kind: models.KindMath, Name: "= 4"}
	p := NewPipeline([]Source{
		appSource(models.SourceItem{ID: "calc-app", Kind: models.KindApp, Name: "2+2 notes"}),
		NewSliceSource("intent", []models.SourceItem{intentItem}),
	}, NewMatcher(), hist)

	got := p.Query(context.Background(), "2+2")
	if len(got) == 0 || got[0].Item.ID != "math:2+2" {
		t.Fatalf("Expected intent result on top, got %+v", got)
	}
}

func TestFailingSourceIsSkippedNotFatal(t *testing.T) {
	p := NewPipeline([]Source{
		failingSource{},
		appSource(models.SourceItem{ID: "firefox", Kind: models.KindApp, Name: "Firefox"}),
	}, NewMatcher(), &fakeHistory{})

	got := p.Query(context.Background(), "fire")
	if len(got) != 1 || got[0].Item.ID != "firefox" {
		t.Fatalf("Expected surviving source's result, got %+v", got)
	}
}

func TestDeduplicationKeepsHigherScore(t *testing.T) {
	hist := &fakeHistory{items: []models.HistoryItem{
		{ID: "firefox", Count: 4, LastUsed: time.Now(), RecentTerms: []string{"fire"}},
	}}
	p := NewPipeline([]Source{
		appSource(models.SourceItem{ID: "firefox", Kind: models.KindApp, Name: "Firefox"}),
		NewHistorySource(hist),
	}, NewMatcher(), hist)

	got := p.Query(context.Background(), "fire")
	count := 0
	for _, c := range got {
		if c.Item.ID == "firefox" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected firefox exactly once, got %d occurrences", count)
	}
}

func TestTruncationAndStableOrder(t *testing.T) {
	var items []models.SourceItem
	for _, name := range []string{"alpha one", "alpha two", "alpha three", "alpha four"} {
		items = append(items, models.SourceItem{ID: name, Kind: models.KindApp, Name: name})
	}
	p := NewPipeline([]Source{appSource(items...)}, NewMatcher(), &fakeHistory{})
	p.MaxDisplayedResults = 2

	got := p.Query(context.Background(), "alpha")
	if len(got) != 2 {
		t.Fatalf("Expected truncation to 2, got %d", len(got))
	}

	// Identical inputs must produce identical output ordering.
	again := p.Query(context.Background(), "alpha")
	for i := range got {
		if got[i].Item.ID != again[i].Item.ID {
			t.Errorf("Non-deterministic ordering at %d: %s vs %s", i, got[i].Item.ID, again[i].Item.ID)
		}
	}
}
