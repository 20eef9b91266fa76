// Package validator reports structural smells that NewGraph accepts but
// that usually mean a flow was written wrong.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Unreachable returns, in registration order, the nodes that no keyword or
// event can lead to, directly or through branches.
func Unreachable(g *domain.Graph) []string {
	nodes := g.Nodes()

	visited := make(map[string]bool)
	var queue []string
	for _, n := range nodes {
		if n.IsEntry() {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		node, ok := g.Node(currentID)
		if !ok {
			continue
		}
		for _, target := range node.Branches {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var orphans []string
	for _, n := range nodes {
		if !visited[n.ID] {
			orphans = append(orphans, n.ID)
		}
	}
	return orphans
}

// ValidateGraph fails when the graph has no entry node or contains nodes
// nothing can reach.
func ValidateGraph(g *domain.Graph) error {
	if g.Len() == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	var errors []string
	entries := 0
	for _, n := range g.Nodes() {
		if n.IsEntry() {
			entries++
		}
	}
	if entries == 0 {
		errors = append(errors, "No node declares a keyword or event")
	}
	for _, id := range Unreachable(g) {
		errors = append(errors, fmt.Sprintf("Unreachable node: '%s'", id))
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
