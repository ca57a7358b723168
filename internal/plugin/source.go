package plugin

import (
	"context"

	"darter/internal/models"
)

// RegistrySource offers the installed plugins themselves as launchable
// candidates for the ranking pipeline.
type RegistrySource struct {
	reg *Registry
}

// NewRegistrySource wraps a plugin registry as a candidate source.
func NewRegistrySource(reg *Registry) *RegistrySource {
	return &RegistrySource{reg: reg}
}

func (s *RegistrySource) Name() string { return "plugins" }

func (s *RegistrySource) Collect(_ context.Context, _ string) ([]models.SourceItem, error) {
	manifests := s.reg.List()
	items := make([]models.SourceItem, 0, len(manifests))
	for _, m := range manifests {
		items = append(items, models.SourceItem{
			ID:          "plugin:" + m.ID,
			Kind:        models.KindPlugin,
			Name:        m.Name,
			Description: m.Description,
			Icon:        m.Icon,
			Verb:        "Open",
			PluginID:    m.ID,
		})
	}
	return items, nil
}
