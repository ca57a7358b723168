// Package config loads the launcher configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the launcher settings.
type Config struct {
	// MaxDisplayedResults caps the ranked list length.
	MaxDisplayedResults int `yaml:"max_displayed_results"`
	// MaxRecentItems caps the empty-query recents view.
	MaxRecentItems int `yaml:"max_recent_items"`
	// SearchDebounceMs coalesces keystrokes for built-in search.
	SearchDebounceMs int `yaml:"search_debounce_ms"`
	// PluginDebounceMs coalesces keystrokes for plugin realtime search.
	// Longer than SearchDebounceMs: every plugin search spawns a process.
	PluginDebounceMs int `yaml:"plugin_debounce_ms"`
	// HandlerTimeoutMs is the wall-clock budget per handler invocation.
	HandlerTimeoutMs int `yaml:"handler_timeout_ms"`
	// PluginDirs are the roots scanned for plugin manifests.
	PluginDirs []string `yaml:"plugin_dirs"`
	// HistoryPath is the SQLite history database location.
	HistoryPath string `yaml:"history_path"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		MaxDisplayedResults: 15,
		MaxRecentItems:      20,
		SearchDebounceMs:    40,
		PluginDebounceMs:    80,
		HandlerTimeoutMs:    10000,
		PluginDirs: []string{
			filepath.Join(home, ".config", "darter", "plugins"),
		},
		HistoryPath: filepath.Join(home, ".local", "share", "darter", "history.db"),
	}
}

// DefaultPath is the standard config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "darter", "config.yaml")
}

// Load reads the config file, filling unset fields with defaults. A missing
// file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize expands ~ in paths and clamps nonsense values back to defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxDisplayedResults <= 0 {
		c.MaxDisplayedResults = def.MaxDisplayedResults
	}
	if c.MaxRecentItems <= 0 {
		c.MaxRecentItems = def.MaxRecentItems
	}
	if c.SearchDebounceMs <= 0 {
		c.SearchDebounceMs = def.SearchDebounceMs
	}
	if c.PluginDebounceMs <= 0 {
		c.PluginDebounceMs = def.PluginDebounceMs
	}
	if c.HandlerTimeoutMs <= 0 {
		c.HandlerTimeoutMs = def.HandlerTimeoutMs
	}
	if c.HistoryPath == "" {
		c.HistoryPath = def.HistoryPath
	}
	c.HistoryPath = expandHome(c.HistoryPath)
	for i, dir := range c.PluginDirs {
		c.PluginDirs[i] = expandHome(dir)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
