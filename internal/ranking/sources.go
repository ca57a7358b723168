package ranking

import (
	"context"

	"darter/internal/models"
)

// SliceSource serves a fixed candidate set, e.g. the indexed applications
// handed over by the desktop collaborator.
type SliceSource struct {
	name  string
	items []models.SourceItem
}

// NewSliceSource creates a source over a static item list.
func NewSliceSource(name string, items []models.SourceItem) *SliceSource {
	return &SliceSource{name: name, items: items}
}

func (s *SliceSource) Name() string { return s.name }

func (s *SliceSource) Collect(_ context.Context, _ string) ([]models.SourceItem, error) {
	out := make([]models.SourceItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Detector is the piece of the intent package the pipeline needs.
type Detector interface {
	Detect(query string) []models.SourceItem
}

// DetectorSource adapts an intent detector to the Source interface.
type DetectorSource struct {
	detector Detector
}

// NewDetectorSource wraps an intent detector.
func NewDetectorSource(d Detector) *DetectorSource {
	return &DetectorSource{detector: d}
}

func (s *DetectorSource) Name() string { return "intent" }

func (s *DetectorSource) Collect(_ context.Context, query string) ([]models.SourceItem, error) {
	return s.detector.Detect(query), nil
}

// HistorySource offers previously selected items of the given kinds as
// candidates in their own right, so habitual selections stay reachable even
// when their originating source is gone.
type HistorySource struct {
	provider HistoryProvider
	kinds    map[models.ItemKind]bool
}

// NewHistorySource creates a history-backed source. An empty kind list
// admits every kind.
func NewHistorySource(provider HistoryProvider, kinds ...models.ItemKind) *HistorySource {
	km := make(map[models.ItemKind]bool, len(kinds))
	for _, k := range kinds {
		km[k] = true
	}
	return &HistorySource{provider: provider, kinds: km}
}

func (s *HistorySource) Name() string { return "history" }

func (s *HistorySource) Collect(_ context.Context, _ string) ([]models.SourceItem, error) {
	snapshot, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	var items []models.SourceItem
	for _, h := range snapshot {
		if len(s.kinds) > 0 && !s.kinds[h.Kind] {
			continue
		}
		items = append(items, models.SourceItem{ID: h.ID, Kind: models.KindHistory, Name: displayName(h.ID)})
	}
	return items, nil
}
