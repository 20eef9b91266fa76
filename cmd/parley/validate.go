package main

import (
	"fmt"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check the flow for consistency",
	Long:  `Compiles the flow and reports unknown branch targets, duplicate triggers and unreachable nodes.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("flow")
		if len(args) > 0 {
			path = args[0]
		}

		g, err := cli.LoadGraph(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if err := validator.ValidateGraph(g); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Printf("Flow is valid (%d nodes).\n", g.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
