package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"darter/internal/apps"
	"darter/internal/execx"
	"darter/internal/history"
	"darter/internal/intent"
	"darter/internal/models"
	"darter/internal/plugin"
	"darter/internal/ranking"
	"darter/internal/tui"
)

func runLauncher(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.New(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return fmt.Errorf("history db unavailable: %w", err)
	}

	registry, err := plugin.Load(cfg.PluginDirs)
	if err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}

	detector := intent.NewDetector(intent.NewCalc())
	sources := []ranking.Source{
		ranking.NewDetectorSource(detector),
		apps.NewSource(apps.NewDetector()),
		plugin.NewRegistrySource(registry),
		ranking.NewHistorySource(store, models.KindApp, models.KindAction, models.KindShellCommand, models.KindURL),
	}
	pipeline := ranking.NewPipeline(sources, ranking.NewMatcher(), store)
	pipeline.MaxDisplayedResults = cfg.MaxDisplayedResults
	pipeline.MaxRecentItems = cfg.MaxRecentItems

	spawner := execx.New("")
	runner := plugin.NewRunner(spawner, store)
	runner.Debounce = time.Duration(cfg.PluginDebounceMs) * time.Millisecond
	runner.Timeout = time.Duration(cfg.HandlerTimeoutMs) * time.Millisecond

	app := tui.New(cfg, pipeline, runner, registry, store, spawner)
	if err := app.Run(); err != nil {
		return fmt.Errorf("launcher: %w", err)
	}
	return nil
}
