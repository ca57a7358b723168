package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"darter/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or wipe selection history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history items, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.Recent(100)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No history.")
			return nil
		}
		for _, it := range items {
			terms := ""
			if len(it.RecentTerms) > 0 {
				terms = "  [" + strings.Join(it.RecentTerms, ", ") + "]"
			}
			fmt.Printf("%-40s  %-8s  %4d uses  %s%s\n",
				it.ID, it.Kind, it.Count, it.LastUsed.Format("2006-01-02 15:04"), terms)
		}
		return nil
	},
}

var historyWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all selection history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Wipe(); err != nil {
			return fmt.Errorf("wipe history: %w", err)
		}
		fmt.Println("History wiped.")
		return nil
	},
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.New(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyWipeCmd)
}
