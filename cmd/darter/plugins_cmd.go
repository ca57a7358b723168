package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"darter/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List discovered plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := plugin.Load(cfg.PluginDirs)
		if err != nil {
			return fmt.Errorf("load plugins: %w", err)
		}

		manifests := registry.List()
		if len(manifests) == 0 {
			fmt.Printf("No plugins found in %s\n", strings.Join(cfg.PluginDirs, ", "))
			return nil
		}
		for _, m := range manifests {
			trigger := "-"
			if m.Trigger != "" {
				trigger = m.Trigger
			}
			fmt.Printf("%-16s  trigger:%-8s  %s  (%s)\n", m.ID, trigger, m.Name, m.InputMode)
			if m.Description != "" {
				fmt.Printf("                  %s\n", m.Description)
			}
		}
		return nil
	},
}
