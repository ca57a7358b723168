package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"darter/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "darter",
	Short: "darter - keyboard-driven quick launcher",
	Long: `darter is a keyboard-driven quick launcher with frecency ranking and
out-of-process plugins speaking a JSON protocol over stdin/stdout.`,
	RunE: runLauncher,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
