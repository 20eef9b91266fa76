package domain

import "context"

// Message is one unit of agent output: text, a media reference, or both.
type Message struct {
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Media string `json:"media,omitempty" yaml:"media,omitempty"`
}

// IsZero reports whether the message carries nothing to deliver.
func (m Message) IsZero() bool {
	return m.Text == "" && m.Media == ""
}

// Continuation is invoked with the reply that resolves a capture step.
// It may mutate the conversation state through the Capture, queue extra
// messages, and must return one of Continue, Fallback, Jump or Complete.
// A returned error aborts the turn and leaves the conversation untouched.
type Continuation func(ctx context.Context, c *Capture) (Outcome, error)

// Step is one ordered unit of output within a Node.
type Step struct {
	Message Message `json:"message"`

	// Capture pauses the conversation after the message is emitted and waits
	// for the next inbound message.
	Capture bool `json:"capture"`

	// Continue receives the captured reply. Only valid on capture steps.
	// A capture step without a continuation simply advances.
	Continue Continuation `json:"-"`
}

// Node represents a vertex in the dialogue graph.
// A Node with Keywords or Events is an entry point; a Node without triggers
// is only reachable by jumping to it from a Node that lists it in Branches.
type Node struct {
	ID       string   `json:"id"`
	Keywords []string `json:"keywords,omitempty"`
	Events   []string `json:"events,omitempty"`
	Steps    []Step   `json:"steps"`

	// Branches lists the nodes a continuation of this node may Jump to.
	Branches []string `json:"branches,omitempty"`
}

// IsEntry reports whether the node can be reached by a trigger.
func (n *Node) IsEntry() bool {
	return len(n.Keywords) > 0 || len(n.Events) > 0
}

// HasBranch reports whether target is a declared branch of the node.
func (n *Node) HasBranch(target string) bool {
	for _, b := range n.Branches {
		if b == target {
			return true
		}
	}
	return false
}

// IsLast reports whether step is the final step of the node.
func (n *Node) IsLast(step int) bool {
	return step == len(n.Steps)-1
}
