package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the flow, or its JSON description.
With --conversation the node the subscriber is waiting on is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		conversation, _ := cmd.Flags().GetString("conversation")

		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := cli.LoadGraph(cfg.Flow.Path)
		if err != nil {
			return err
		}
		nodes := g.Describe()

		switch format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		case "mermaid":
		default:
			return fmt.Errorf("unknown format: %s. Supported: mermaid, json", format)
		}

		var overlay *graph.GraphOverlay
		if conversation != "" {
			app, err := buildOffline(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			conv, err := app.Agent.Sessions().Load(cmd.Context(), conversation)
			if err != nil {
				return fmt.Errorf("error loading conversation '%s': %w", conversation, err)
			}
			overlay = &graph.GraphOverlay{}
			if conv.Resume != nil {
				overlay.CurrentNode = conv.Resume.Node
				overlay.VisitedNodes = []string{conv.Resume.Node}
			}
		}

		fmt.Print(graph.GenerateMermaid(nodes, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", "mermaid", "Output format: 'mermaid' or 'json'")
	graphCmd.Flags().String("conversation", "", "Highlight where this subscriber currently is")
}
