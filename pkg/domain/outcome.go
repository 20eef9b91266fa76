package domain

import "fmt"

// Outcome is the closed set of results a step can produce.
// Continuations return Continue, Fallback, Jump or Complete; the engine
// additionally reports AwaitingCapture when a turn suspends.
type Outcome interface {
	outcome()
	fmt.Stringer
}

// Continue advances to the next step of the current node.
type Continue struct {
	Next int
}

// AwaitingCapture reports that the conversation is suspended on a capture step.
type AwaitingCapture struct {
	Node string
	Step int
}

// Fallback re-prompts the current capture step. Message, when set, is sent
// before the prompt is repeated.
type Fallback struct {
	Message string
}

// Jump moves the conversation to step 0 of Node within the same turn.
type Jump struct {
	Node string
}

// Complete ends the current node and leaves the conversation idle.
type Complete struct{}

func (Continue) outcome()        {}
func (AwaitingCapture) outcome() {}
func (Fallback) outcome()        {}
func (Jump) outcome()            {}
func (Complete) outcome()        {}

func (o Continue) String() string        { return fmt.Sprintf("continue(%d)", o.Next) }
func (o AwaitingCapture) String() string { return fmt.Sprintf("awaiting(%s#%d)", o.Node, o.Step) }
func (o Fallback) String() string        { return "fallback" }
func (o Jump) String() string            { return "jump(" + o.Node + ")" }
func (o Complete) String() string        { return "complete" }

// Kind returns a short, stable label for the outcome, suitable for metrics.
func Kind(o Outcome) string {
	switch o.(type) {
	case Continue:
		return "continue"
	case AwaitingCapture:
		return "awaiting_capture"
	case Fallback:
		return "fallback"
	case Jump:
		return "jump"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Next advances to the following step.
func Next() Outcome { return Continue{} }

// Retry re-prompts the current step, optionally with a corrective message.
func Retry(message string) Outcome { return Fallback{Message: message} }

// GoTo jumps to the given node.
func GoTo(node string) Outcome { return Jump{Node: node} }

// Done completes the current node.
func Done() Outcome { return Complete{} }
