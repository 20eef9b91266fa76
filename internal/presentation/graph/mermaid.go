package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// GraphOverlay contains conversation data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a graph description.
// Shapes follow the role of the node:
// - Keyword entry: ((Circle)) labelled with its keywords
// - Waits for a reply: [/Parallelogram/]
// - Default: [Rectangle]
// Events are drawn as flags pointing at their node and branches as dotted
// edges. Overlay styles are applied when overlay is not nil.
func GenerateMermaid(nodes []domain.NodeInfo, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case len(node.Keywords) > 0:
			opener, closer = "((", "))"
		case captures(node):
			opener, closer = "[/", "/]"
		}

		label := node.ID
		if len(node.Keywords) > 0 {
			label = fmt.Sprintf("%s <br/> %s", node.ID, strings.Join(node.Keywords, ", "))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)

		for _, ev := range node.Events {
			evID := "ev_" + sanitizeMermaidID(ev)
			fmt.Fprintf(&sb, "    %s>\"%s\"] --> %s\n", evID, escape(ev), safeID)
		}

		for _, target := range node.Branches {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", safeID, sanitizeMermaidID(target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func captures(node domain.NodeInfo) bool {
	for _, s := range node.Steps {
		if s.Capture {
			return true
		}
	}
	return false
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
