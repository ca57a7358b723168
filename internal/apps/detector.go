// Package apps detects installed desktop applications on PATH and offers
// them as launchable candidates. Full desktop-entry indexing belongs to an
// external collaborator; this covers the common case of binary-on-PATH apps.
package apps

import (
	"context"
	"os/exec"

	"darter/internal/models"
)

// knownApp describes one probe target.
type knownApp struct {
	bin         string
	name        string
	description string
	icon        string
}

// defaultApps is the probe table, first match wins per name.
var defaultApps = []knownApp{
	{bin: "firefox", name: "Firefox", description: "Web browser", icon: "firefox"},
	{bin: "chromium", name: "Chromium", description: "Web browser", icon: "chromium"},
	{bin: "google-chrome", name: "Google Chrome", description: "Web browser", icon: "google-chrome"},
	{bin: "code", name: "Visual Studio Code", description: "Code editor", icon: "vscode"},
	{bin: "kitty", name: "Kitty", description: "Terminal emulator", icon: "kitty"},
	{bin: "alacritty", name: "Alacritty", description: "Terminal emulator", icon: "alacritty"},
	{bin: "foot", name: "Foot", description: "Terminal emulator", icon: "foot"},
	{bin: "nautilus", name: "Files", description: "File manager", icon: "nautilus"},
	{bin: "thunar", name: "Thunar", description: "File manager", icon: "thunar"},
	{bin: "thunderbird", name: "Thunderbird", description: "Mail client", icon: "thunderbird"},
	{bin: "mpv", name: "mpv", description: "Media player", icon: "mpv"},
	{bin: "vlc", name: "VLC", description: "Media player", icon: "vlc"},
	{bin: "gimp", name: "GIMP", description: "Image editor", icon: "gimp"},
	{bin: "inkscape", name: "Inkscape", description: "Vector editor", icon: "inkscape"},
	{bin: "obsidian", name: "Obsidian", description: "Notes", icon: "obsidian"},
	{bin: "steam", name: "Steam", description: "Games", icon: "steam"},
}

// Detector scans PATH for known applications.
type Detector struct {
	table []knownApp
	look  func(string) (string, error)
}

// NewDetector creates a detector over the default probe table.
func NewDetector() *Detector {
	return &Detector{table: defaultApps, look: exec.LookPath}
}

// Scan probes the table and returns the installed applications.
func (d *Detector) Scan() []models.SourceItem {
	var items []models.SourceItem
	for _, app := range d.table {
		path, err := d.look(app.bin)
		if err != nil {
			continue
		}
		items = append(items, models.SourceItem{
			ID:          "app:" + app.bin,
			Kind:        models.KindApp,
			Name:        app.name,
			Description: app.description,
			Icon:        app.icon,
			Verb:        "Launch",
			Exec:        []string{path},
		})
	}
	return items
}

// Source adapts the detector to the ranking pipeline. The scan runs once at
// startup; installed apps do not change mid-session.
type Source struct {
	items []models.SourceItem
}

// NewSource scans immediately and serves the snapshot.
func NewSource(d *Detector) *Source {
	return &Source{items: d.Scan()}
}

func (s *Source) Name() string { return "apps" }

func (s *Source) Collect(_ context.Context, _ string) ([]models.SourceItem, error) {
	return s.items, nil
}
