package plugin

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// Manifest describes one installed plugin.
type Manifest struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Icon         string      `json:"icon,omitempty"`
	Trigger      string      `json:"trigger,omitempty"`
	Handler      CommandLine `json:"handler"`
	PollInterval int         `json:"pollInterval,omitempty"` // milliseconds
	InputMode    string      `json:"inputMode,omitempty"`
	Placeholder  string      `json:"placeholder,omitempty"`

	dir string
}

// Argv resolves the handler command. A relative executable path is taken
// relative to the plugin directory.
func (m Manifest) Argv() []string {
	if len(m.Handler) == 0 {
		return nil
	}
	argv := make([]string, len(m.Handler))
	copy(argv, m.Handler)
	// Prefer a handler shipped inside the plugin directory; otherwise leave
	// the executable to PATH lookup (e.g. "python3").
	if !filepath.IsAbs(argv[0]) && m.dir != "" {
		candidate := filepath.Join(m.dir, argv[0])
		if _, err := os.Stat(candidate); err == nil {
			argv[0] = candidate
		}
	}
	return argv
}

// Registry indexes the discovered plugins by id and trigger word.
type Registry struct {
	byID      map[string]Manifest
	byTrigger map[string]Manifest
	order     []string
}

// Load scans plugin roots for directories containing a manifest.json.
// Malformed manifests are logged and skipped; a missing root is not an error.
func Load(dirs []string) (*Registry, error) {
	r := &Registry{
		byID:      make(map[string]Manifest),
		byTrigger: make(map[string]Manifest),
	}
	for _, root := range dirs {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read plugin dir %s: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			m, err := readManifest(dir)
			if err != nil {
				log.Printf("Plugins: skipping %s: %v", dir, err)
				continue
			}
			r.add(m)
		}
	}
	sort.Strings(r.order)
	return r, nil
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.ID == "" {
		return Manifest{}, fmt.Errorf("manifest missing id")
	}
	if len(m.Handler) == 0 {
		return Manifest{}, fmt.Errorf("manifest missing handler")
	}
	if m.InputMode == "" {
		m.InputMode = InputRealtime
	}
	m.dir = dir
	return m, nil
}

func (r *Registry) add(m Manifest) {
	if _, dup := r.byID[m.ID]; dup {
		log.Printf("Plugins: duplicate id %s, keeping first", m.ID)
		return
	}
	r.byID[m.ID] = m
	r.order = append(r.order, m.ID)
	if m.Trigger != "" {
		r.byTrigger[m.Trigger] = m
	}
}

// Get looks a plugin up by id.
func (r *Registry) Get(id string) (Manifest, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// ByTrigger looks a plugin up by its trigger word.
func (r *Registry) ByTrigger(trigger string) (Manifest, bool) {
	m, ok := r.byTrigger[trigger]
	return m, ok
}

// List returns all plugins ordered by id.
func (r *Registry) List() []Manifest {
	out := make([]Manifest, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
