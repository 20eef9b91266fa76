package dsl

import (
	"context"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Keywords registers keyword triggers for the node.
func (n *NodeBuilder) Keywords(keywords ...string) *NodeBuilder {
	n.node.Keywords = append(n.node.Keywords, keywords...)
	return n
}

// Events registers named event triggers for the node.
func (n *NodeBuilder) Events(events ...string) *NodeBuilder {
	n.node.Events = append(n.node.Events, events...)
	return n
}

// Say appends a non-capture text step (soft step).
func (n *NodeBuilder) Say(text string) *NodeBuilder {
	n.node.Steps = append(n.node.Steps, domain.Step{Message: domain.Message{Text: text}})
	return n
}

// SayMedia appends a non-capture step carrying a media reference.
func (n *NodeBuilder) SayMedia(text, url string) *NodeBuilder {
	n.node.Steps = append(n.node.Steps, domain.Step{Message: domain.Message{Text: text, Media: url}})
	return n
}

// Ask appends a capture step (hard step). cont may be nil, in which case the
// reply simply advances the node.
func (n *NodeBuilder) Ask(text string, cont domain.Continuation) *NodeBuilder {
	n.node.Steps = append(n.node.Steps, domain.Step{
		Message:  domain.Message{Text: text},
		Capture:  true,
		Continue: cont,
	})
	return n
}

// Step appends a fully specified step.
func (n *NodeBuilder) Step(step domain.Step) *NodeBuilder {
	n.node.Steps = append(n.node.Steps, step)
	return n
}

// Branch declares nodes that continuations of this node may jump to.
func (n *NodeBuilder) Branch(targets ...string) *NodeBuilder {
	n.node.Branches = append(n.node.Branches, targets...)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}

// SaveTo returns a continuation that stores the trimmed reply under key and advances.
func SaveTo(key string) domain.Continuation {
	return func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
		c.Set(key, strings.TrimSpace(c.Body))
		return domain.Next(), nil
	}
}

// Expect returns a continuation that advances only when the reply matches one
// of the accepted values (case-insensitive). Otherwise it falls back with the
// corrective message.
func Expect(corrective string, accepted ...string) domain.Continuation {
	return func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
		reply := strings.TrimSpace(c.Body)
		for _, a := range accepted {
			if strings.EqualFold(reply, a) {
				return domain.Next(), nil
			}
		}
		return domain.Retry(corrective), nil
	}
}
