package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
)

// Engine walks the dialogue graph. It performs no I/O: every turn returns the
// outbound effects and history records for the host to deliver and persist.
// An Engine is safe for concurrent use; callers serialize turns per conversation.
type Engine struct {
	graph        *domain.Graph
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxFallbacks int
	giveUp       string
	now          func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxFallbacks bounds consecutive re-prompts of one capture step.
// When the bound is exceeded the conversation returns to idle, after sending
// message if it is not empty. Zero means unbounded.
func WithMaxFallbacks(n int, message string) EngineOption {
	return func(e *Engine) {
		e.maxFallbacks = n
		e.giveUp = message
	}
}

// WithClock overrides the time source used for events.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over a validated graph.
func NewEngine(graph *domain.Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:  graph,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the engine walks.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Inspect returns the graph nodes in registration order.
func (e *Engine) Inspect() []domain.Node {
	return e.graph.Nodes()
}

// ResolveKeyword returns the node registered for the keyword, if any.
func (e *Engine) ResolveKeyword(text string) (string, bool) {
	return e.graph.ResolveKeyword(text)
}

// ResolveEvent returns the node registered for the event, if any.
func (e *Engine) ResolveEvent(name string) (string, bool) {
	return e.graph.ResolveEvent(name)
}

// Turn is the result of one Start or Advance call.
type Turn struct {
	// Conversation is the updated snapshot. The input conversation is never mutated.
	Conversation *domain.Conversation

	// Outcome is the final outcome of the turn: AwaitingCapture, Fallback or Complete.
	Outcome domain.Outcome

	// Trace lists every outcome produced while the turn executed, in order.
	Trace []domain.Outcome

	Effects []domain.Effect
	Records []domain.HistoryRecord
}

func (t *Turn) push(o domain.Outcome) {
	t.Trace = append(t.Trace, o)
	t.Outcome = o
}

// CanResume reports whether rp still names a node and step of the graph.
// Resume points persisted before a flow change may not.
func (e *Engine) CanResume(rp *domain.ResumePoint) bool {
	if rp == nil {
		return false
	}
	node, ok := e.graph.Node(rp.Node)
	return ok && rp.Step >= 0 && rp.Step < len(node.Steps)
}

// Start enters nodeID from step 0. trigger is the keyword or event that
// matched and in is the message that caused it, recorded in history.
// Any pending capture of the conversation is abandoned.
func (e *Engine) Start(ctx context.Context, conv *domain.Conversation, nodeID, trigger string, in domain.Inbound) (*Turn, error) {
	if _, ok := e.graph.Node(nodeID); !ok {
		return nil, &domain.EngineError{Conversation: conv.ID, Node: nodeID, Err: domain.ErrUnknownNode}
	}

	work := conv.Snapshot()
	turn := &Turn{Conversation: work}

	turn.Records = append(turn.Records, e.record(work.ID, nodeID, 0, trigger, in, false))
	e.run(ctx, work, turn, nodeID, 0, trigger)
	return turn, nil
}

// Advance feeds an inbound reply to the capture step the conversation is
// suspended on. If the step's continuation fails, the returned error is an
// *domain.EngineError and the conversation is left exactly as it was, so the
// same step runs again on the next message.
func (e *Engine) Advance(ctx context.Context, conv *domain.Conversation, in domain.Inbound) (*Turn, error) {
	if conv.Resume == nil {
		return nil, &domain.EngineError{Conversation: conv.ID, Err: domain.ErrNotAwaiting}
	}
	rp := *conv.Resume

	node, ok := e.graph.Node(rp.Node)
	if !ok || !e.CanResume(&rp) {
		return nil, &domain.EngineError{Conversation: conv.ID, Node: rp.Node, Step: rp.Step, Err: domain.ErrUnknownNode}
	}
	step := node.Steps[rp.Step]

	work := conv.Snapshot()
	turn := &Turn{Conversation: work}
	fail := func(err error) (*Turn, error) {
		e.logger.Warn("Turn aborted", "conversation_id", conv.ID, "node", rp.Node, "step", rp.Step, "err", err)
		return nil, &domain.EngineError{Conversation: conv.ID, Node: rp.Node, Step: rp.Step, Err: err}
	}

	outcome := domain.Next()
	var capture *domain.Capture
	if step.Continue != nil {
		capture = domain.NewCapture(conv.ID, in, work.State)
		var err error
		outcome, err = e.invoke(ctx, step.Continue, capture)
		if err != nil {
			return fail(err)
		}
	}

	// Validate before anything is committed to the working copy.
	next := rp.Step + 1
	switch o := outcome.(type) {
	case domain.Continue:
		if o.Next != 0 {
			if o.Next <= rp.Step || o.Next >= len(node.Steps) {
				return fail(fmt.Errorf("%w: continue to step %d", domain.ErrUndefinedOutcome, o.Next))
			}
			next = o.Next
		}
	case domain.Fallback:
	case domain.Jump:
		if !node.HasBranch(o.Node) {
			return fail(fmt.Errorf("%w: %q", domain.ErrIllegalJump, o.Node))
		}
	case domain.Complete:
		if !node.IsLast(rp.Step) {
			return fail(fmt.Errorf("%w: complete from non-terminal step", domain.ErrUndefinedOutcome))
		}
	default:
		return fail(fmt.Errorf("%w: %v", domain.ErrUndefinedOutcome, outcome))
	}

	if capture != nil {
		work.State = capture.Commit()
		turn.Effects = append(turn.Effects, capture.Effects()...)
	}
	turn.Records = append(turn.Records, e.record(work.ID, rp.Node, rp.Step, rp.Keyword, in, true))

	switch o := outcome.(type) {
	case domain.Continue:
		turn.push(domain.Continue{Next: next})
		if next >= len(node.Steps) {
			e.complete(ctx, work, turn, node, rp.Keyword)
			return turn, nil
		}
		e.run(ctx, work, turn, rp.Node, next, rp.Keyword)

	case domain.Fallback:
		e.fallback(ctx, work, turn, node, rp, o)

	case domain.Jump:
		turn.push(o)
		e.emitNodeLeave(ctx, work.ID, node.ID, rp.Step, rp.Keyword)
		e.run(ctx, work, turn, o.Node, 0, rp.Keyword)

	case domain.Complete:
		e.complete(ctx, work, turn, node, rp.Keyword)
	}
	return turn, nil
}

// invoke calls a continuation, turning a panic into an error so a faulty
// callback aborts only its own turn.
func (e *Engine) invoke(ctx context.Context, fn domain.Continuation, c *domain.Capture) (out domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("continuation panicked: %v", r)
		}
	}()
	out, err = fn(ctx, c)
	if err == nil && out == nil {
		err = domain.ErrUndefinedOutcome
	}
	return out, err
}
