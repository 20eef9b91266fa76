package domain

import (
	"fmt"
	"strings"
)

// Graph is the immutable, validated dialogue graph.
// It is built once at startup and shared read-only by every turn.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	keywords map[string]string
	events   map[string]string
}

// NewGraph validates the nodes and indexes their triggers.
// Registering the same keyword (case-insensitive) or event on two nodes is a
// ConfigError wrapping ErrDuplicateTrigger.
func NewGraph(nodes ...Node) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*Node, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		keywords: make(map[string]string),
		events:   make(map[string]string),
	}

	for i := range nodes {
		n := nodes[i]
		if n.ID == "" {
			return nil, &ConfigError{Err: fmt.Errorf("%w: node at index %d has no id", ErrInvalidNode, i)}
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &ConfigError{Node: n.ID, Err: fmt.Errorf("%w: node registered twice", ErrInvalidNode)}
		}
		if len(n.Steps) == 0 {
			return nil, &ConfigError{Node: n.ID, Err: fmt.Errorf("%w: node has no steps", ErrInvalidNode)}
		}
		for idx, s := range n.Steps {
			if s.Continue != nil && !s.Capture {
				return nil, &ConfigError{Node: n.ID, Err: fmt.Errorf("%w: step %d has a continuation but does not capture", ErrInvalidNode, idx)}
			}
		}

		for _, kw := range n.Keywords {
			key := normalizeKeyword(kw)
			if key == "" {
				return nil, &ConfigError{Node: n.ID, Err: fmt.Errorf("%w: empty keyword", ErrInvalidNode)}
			}
			if owner, taken := g.keywords[key]; taken {
				return nil, &ConfigError{Node: n.ID, Trigger: kw, Err: fmt.Errorf("%w: keyword already registered by %q", ErrDuplicateTrigger, owner)}
			}
			g.keywords[key] = n.ID
		}
		for _, ev := range n.Events {
			if ev == "" {
				return nil, &ConfigError{Node: n.ID, Err: fmt.Errorf("%w: empty event", ErrInvalidNode)}
			}
			if owner, taken := g.events[ev]; taken {
				return nil, &ConfigError{Node: n.ID, Trigger: ev, Err: fmt.Errorf("%w: event already registered by %q", ErrDuplicateTrigger, owner)}
			}
			g.events[ev] = n.ID
		}

		n.Keywords = append([]string(nil), n.Keywords...)
		n.Events = append([]string(nil), n.Events...)
		n.Steps = append([]Step(nil), n.Steps...)
		n.Branches = append([]string(nil), n.Branches...)
		g.nodes[n.ID] = &n
		g.order = append(g.order, n.ID)
	}

	// Branch targets are checked once every node is known.
	for _, id := range g.order {
		for _, target := range g.nodes[id].Branches {
			if _, ok := g.nodes[target]; !ok {
				return nil, &ConfigError{Node: id, Err: fmt.Errorf("%w: branch target %q", ErrUnknownNode, target)}
			}
		}
	}

	return g, nil
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Node returns the node registered under id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// ResolveKeyword matches text exactly (case-insensitive, surrounding spaces
// ignored) against the registered keywords.
func (g *Graph) ResolveKeyword(text string) (string, bool) {
	id, ok := g.keywords[normalizeKeyword(text)]
	return id, ok
}

// ResolveEvent matches name exactly against the registered events.
func (g *Graph) ResolveEvent(name string) (string, bool) {
	id, ok := g.events[name]
	return id, ok
}

// Nodes returns the nodes in registration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}
