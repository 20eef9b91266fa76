package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the interaction history",
}

var historyLatestCmd = &cobra.Command{
	Use:   "latest <number>",
	Short: "Print the most recent history record of a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		rec, err := app.Agent.Latest(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading history for '%s': %w", args[0], err)
		}
		if rec == nil {
			fmt.Printf("No history found for '%s'.\n", args[0])
			return nil
		}

		// Pretty print JSON
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the history table if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildOffline(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.History.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("History schema ready (%s).\n", app.History.Dialect().Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyLatestCmd)
	historyCmd.AddCommand(historyMigrateCmd)
}

// buildOffline wires the configured backends without a live transport, for
// administrative commands.
func buildOffline(cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Metrics.Enabled = false
	return cli.Build(cmd.Context(), cfg, logger, memory.NewProvider())
}
