package runtime

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// emit renders msg against the conversation state and queues it.
func (e *Engine) emit(work *domain.Conversation, turn *Turn, msg domain.Message) {
	msg = render(msg, work.State)
	if msg.IsZero() {
		return
	}
	turn.Effects = append(turn.Effects, domain.Effect{To: work.ID, Message: msg})
}

func render(msg domain.Message, state map[string]any) domain.Message {
	return domain.Message{
		Text:  domain.Interpolate(msg.Text, state),
		Media: domain.Interpolate(msg.Media, state),
	}
}

func (e *Engine) event(kind domain.EventType, id, node string, step int, trigger string) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase: domain.EventBase{
			Timestamp:      e.now(),
			Type:           kind,
			ConversationID: id,
		},
		NodeID:  node,
		Step:    step,
		Keyword: trigger,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, id, node, trigger string) {
	e.logger.Debug("node_enter", "conversation_id", id, "node", node, "trigger", trigger)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, e.event(domain.EventNodeEnter, id, node, 0, trigger))
	}
}

func (e *Engine) emitNodeLeave(ctx context.Context, id, node string, step int, trigger string) {
	e.logger.Debug("node_leave", "conversation_id", id, "node", node, "step", step)
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, e.event(domain.EventNodeLeave, id, node, step, trigger))
	}
}

func (e *Engine) emitCapture(ctx context.Context, id, node string, step int, trigger string) {
	if e.hooks.OnCapture != nil {
		e.hooks.OnCapture(ctx, e.event(domain.EventCapture, id, node, step, trigger))
	}
}

func (e *Engine) emitFallback(ctx context.Context, id, node string, step int, trigger string) {
	e.logger.Debug("fallback", "conversation_id", id, "node", node, "step", step)
	if e.hooks.OnFallback != nil {
		e.hooks.OnFallback(ctx, e.event(domain.EventFallback, id, node, step, trigger))
	}
}
