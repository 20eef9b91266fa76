package runtime

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// run executes the steps of nodeID from step onwards until a capture step
// suspends the conversation or the node ends.
func (e *Engine) run(ctx context.Context, work *domain.Conversation, turn *Turn, nodeID string, step int, trigger string) {
	node, _ := e.graph.Node(nodeID)
	if step == 0 {
		e.emitNodeEnter(ctx, work.ID, nodeID, trigger)
	}

	for ; step < len(node.Steps); step++ {
		s := node.Steps[step]
		e.emit(work, turn, s.Message)

		if s.Capture {
			work.Resume = &domain.ResumePoint{Node: nodeID, Step: step, Keyword: trigger}
			turn.push(domain.AwaitingCapture{Node: nodeID, Step: step})
			e.emitCapture(ctx, work.ID, nodeID, step, trigger)
			return
		}
		if step+1 < len(node.Steps) {
			turn.push(domain.Continue{Next: step + 1})
		}
	}

	e.complete(ctx, work, turn, node, trigger)
}

// complete leaves the node and returns the conversation to idle.
func (e *Engine) complete(ctx context.Context, work *domain.Conversation, turn *Turn, node *domain.Node, trigger string) {
	work.Resume = nil
	turn.push(domain.Complete{})
	e.emitNodeLeave(ctx, work.ID, node.ID, len(node.Steps)-1, trigger)
}

// fallback re-emits the prompt of the current capture step, keeping the
// resume point, unless the fallback bound is exceeded.
func (e *Engine) fallback(ctx context.Context, work *domain.Conversation, turn *Turn, node *domain.Node, rp domain.ResumePoint, o domain.Fallback) {
	rp.Fallbacks++
	e.emitFallback(ctx, work.ID, node.ID, rp.Step, rp.Keyword)

	if e.maxFallbacks > 0 && rp.Fallbacks > e.maxFallbacks {
		e.logger.Info("Fallback limit reached, abandoning node",
			"conversation_id", work.ID, "node", node.ID, "step", rp.Step, "fallbacks", rp.Fallbacks)
		e.emit(work, turn, domain.Message{Text: e.giveUp})
		e.complete(ctx, work, turn, node, rp.Keyword)
		return
	}

	e.emit(work, turn, domain.Message{Text: o.Message})
	e.emit(work, turn, node.Steps[rp.Step].Message)
	work.Resume = &rp
	turn.push(o)
}

// record builds the history entry for a message received at node#step.
func (e *Engine) record(id, node string, step int, trigger string, in domain.Inbound, capture bool) domain.HistoryRecord {
	opts := map[string]any{
		domain.OptionCapture:   capture,
		domain.OptionStep:      step,
		domain.OptionDirection: domain.DirectionInbound,
	}
	if in.Media != "" {
		opts[domain.OptionMedia] = in.Media
	}
	return domain.HistoryRecord{
		Ref:          node,
		Keyword:      trigger,
		Answer:       in.Body,
		RefSerialize: domain.SerializeRef(node, step),
		Phone:        id,
		Options:      opts,
	}
}
