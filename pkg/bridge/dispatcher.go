package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// ErrMissingID is returned when a message or trigger names no subscriber.
var (
	ErrMissingID    = errors.New("subscriber id is required")
	ErrEmptyMessage = errors.New("message is empty")
)

// Reasons reported to Hooks.OnDropped.
const (
	DropBlacklisted = "blacklisted"
	DropUnmatched   = "unmatched"
)

// DirectRef is the history ref of messages sent through Send.
const DirectRef = "direct"

// Hooks receives dispatch notifications, typically for metrics.
type Hooks struct {
	OnTurn            func(kind string, outcome domain.Outcome, elapsed time.Duration)
	OnTurnError       func(kind string, err error)
	OnDropped         func(reason string)
	OnDeliveryFailure func(err error)
	OnHistoryFailure  func(err error)
}

// Dispatcher routes inbound traffic through the engine.
type Dispatcher struct {
	engine    *runtime.Engine
	sessions  *session.Manager
	history   ports.HistoryStore
	provider  ports.Provider
	blacklist ports.Blacklist

	hooks    Hooks
	logger   *slog.Logger
	maxInput int
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithBlacklist sets the blacklist. Defaults to an in-memory set.
func WithBlacklist(list ports.Blacklist) Option {
	return func(d *Dispatcher) {
		d.blacklist = list
	}
}

// WithHooks registers dispatch callbacks.
func WithHooks(h Hooks) Option {
	return func(d *Dispatcher) {
		d.hooks = h
	}
}

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMaxInputSize overrides the inbound body size limit.
func WithMaxInputSize(n int) Option {
	return func(d *Dispatcher) {
		d.maxInput = n
	}
}

// New creates a Dispatcher.
func New(engine *runtime.Engine, sessions *session.Manager, history ports.HistoryStore, provider ports.Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		engine:    engine,
		sessions:  sessions,
		history:   history,
		provider:  provider,
		blacklist: memory.NewBlacklist(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine returns the engine the dispatcher drives.
func (d *Dispatcher) Engine() *runtime.Engine {
	return d.engine
}

// HandleInbound processes one message from subscriber id and returns the
// effects that were delivered. A conversation suspended on a capture step
// receives the message as its answer; an idle one is matched against the
// graph's keywords, then the MEDIA and WELCOME events. Messages that match
// nothing produce no effects. A resume point that no longer exists in the
// graph is discarded and the message is routed as if the conversation were idle.
func (d *Dispatcher) HandleInbound(ctx context.Context, id string, in domain.Inbound) ([]domain.Effect, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	body, err := SanitizeInput(in.Body, d.maxInput)
	if err != nil {
		return nil, err
	}
	in.Body = body

	if dropped, err := d.blacklisted(ctx, id); dropped || err != nil {
		return nil, err
	}

	return d.turn(ctx, "inbound", id, func(ctx context.Context, conv *domain.Conversation) (*runtime.Turn, error) {
		stale := conv.Resume != nil && !d.engine.CanResume(conv.Resume)
		if stale {
			d.logger.Warn("Discarding stale resume point", "conversation_id", id,
				"node", conv.Resume.Node, "step", conv.Resume.Step)
			conv.Resume = nil
		}
		if conv.Resume != nil {
			return d.engine.Advance(ctx, conv, in)
		}
		node, trigger, ok := d.resolve(in)
		if !ok {
			if stale {
				return nil, d.sessions.SaveLocked(ctx, conv)
			}
			return nil, nil
		}
		return d.engine.Start(ctx, conv, node, trigger, in)
	})
}

// resolve picks the entry node for a message from an idle conversation.
func (d *Dispatcher) resolve(in domain.Inbound) (node, trigger string, ok bool) {
	text := strings.TrimSpace(in.Body)
	if text != "" {
		if node, ok := d.engine.ResolveKeyword(text); ok {
			return node, text, true
		}
	}
	if text == "" && in.Media != "" {
		if node, ok := d.engine.ResolveEvent(domain.EventMedia); ok {
			return node, domain.EventMedia, true
		}
	}
	if node, ok := d.engine.ResolveEvent(domain.EventWelcome); ok {
		return node, domain.EventWelcome, true
	}
	return "", "", false
}

// HandleExternalTrigger starts the node registered for event on behalf of
// subscriber id, seeding the conversation state with payload. A pending
// capture is abandoned. Unknown events fail with domain.ErrUnknownTrigger.
func (d *Dispatcher) HandleExternalTrigger(ctx context.Context, event, id string, payload map[string]any) ([]domain.Effect, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	node, ok := d.engine.ResolveEvent(event)
	if !ok {
		return nil, fmt.Errorf("%w: event %q", domain.ErrUnknownTrigger, event)
	}

	if dropped, err := d.blacklisted(ctx, id); dropped || err != nil {
		return nil, err
	}

	return d.turn(ctx, "trigger", id, func(ctx context.Context, conv *domain.Conversation) (*runtime.Turn, error) {
		maps.Copy(conv.State, payload)
		return d.engine.Start(ctx, conv, node, event, domain.Inbound{})
	})
}

// turn runs step under the conversation lock, persists the new conversation,
// delivers the effects and appends the history records, in that order.
func (d *Dispatcher) turn(ctx context.Context, kind, id string, step func(context.Context, *domain.Conversation) (*runtime.Turn, error)) ([]domain.Effect, error) {
	start := time.Now()
	var effects []domain.Effect

	err := d.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := d.sessions.LoadLocked(ctx, id)
		if err != nil {
			return err
		}

		t, err := step(ctx, conv)
		if err != nil {
			return err
		}
		if t == nil {
			d.logger.Debug("Inbound matched no trigger", "conversation_id", id)
			d.dropped(DropUnmatched)
			return nil
		}

		if err := d.sessions.SaveLocked(ctx, t.Conversation); err != nil {
			return err
		}

		d.deliver(ctx, t.Effects)
		d.record(ctx, t.Records)
		effects = t.Effects

		if d.hooks.OnTurn != nil {
			d.hooks.OnTurn(kind, t.Outcome, time.Since(start))
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("Turn failed", "kind", kind, "conversation_id", id, "err", err)
		if d.hooks.OnTurnError != nil {
			d.hooks.OnTurnError(kind, err)
		}
		return nil, err
	}
	return effects, nil
}

// deliver sends every effect in order. Delivery failures are logged and
// counted; the remaining effects are still attempted.
func (d *Dispatcher) deliver(ctx context.Context, effects []domain.Effect) {
	for _, eff := range effects {
		if err := d.provider.Send(ctx, eff.To, eff.Message); err != nil {
			d.logger.Error("Failed to deliver message", "to", eff.To, "err", err)
			if d.hooks.OnDeliveryFailure != nil {
				d.hooks.OnDeliveryFailure(err)
			}
		}
	}
}

// record appends history records. The reply has already been delivered, so
// failures are logged and counted, never returned.
func (d *Dispatcher) record(ctx context.Context, records []domain.HistoryRecord) {
	if d.history == nil {
		return
	}
	for i := range records {
		if err := d.history.Append(ctx, &records[i]); err != nil {
			d.logger.Warn("Failed to append history",
				"conversation_id", records[i].Phone,
				"ref", records[i].RefSerialize,
				"err", err,
			)
			if d.hooks.OnHistoryFailure != nil {
				d.hooks.OnHistoryFailure(err)
			}
		}
	}
}

// Send delivers msg to subscriber to directly, bypassing the graph, and
// records it as an outbound history row. The text passes the same input
// limits as inbound messages. Blacklist membership is not checked.
func (d *Dispatcher) Send(ctx context.Context, to string, msg domain.Message) error {
	if to == "" {
		return ErrMissingID
	}
	text, err := SanitizeInput(msg.Text, d.maxInput)
	if err != nil {
		return err
	}
	msg.Text = text
	if msg.IsZero() {
		return ErrEmptyMessage
	}
	if err := d.provider.Send(ctx, to, msg); err != nil {
		if d.hooks.OnDeliveryFailure != nil {
			d.hooks.OnDeliveryFailure(err)
		}
		return fmt.Errorf("failed to deliver message: %w", err)
	}

	opts := map[string]any{domain.OptionDirection: domain.DirectionOutbound}
	if msg.Media != "" {
		opts[domain.OptionMedia] = msg.Media
	}
	d.record(ctx, []domain.HistoryRecord{{
		Ref:          DirectRef,
		Answer:       msg.Text,
		RefSerialize: DirectRef,
		Phone:        to,
		Options:      opts,
	}})
	return nil
}

// Latest returns the most recent history record of subscriber id.
func (d *Dispatcher) Latest(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	if d.history == nil {
		return nil, nil
	}
	return d.history.LatestFor(ctx, id)
}

// AddToBlacklist stops routing messages from id.
func (d *Dispatcher) AddToBlacklist(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return d.blacklist.Add(ctx, id)
}

// RemoveFromBlacklist resumes routing messages from id.
func (d *Dispatcher) RemoveFromBlacklist(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return d.blacklist.Remove(ctx, id)
}

// IsBlacklisted reports whether messages from id are dropped.
func (d *Dispatcher) IsBlacklisted(ctx context.Context, id string) (bool, error) {
	return d.blacklist.Contains(ctx, id)
}

func (d *Dispatcher) blacklisted(ctx context.Context, id string) (bool, error) {
	listed, err := d.blacklist.Contains(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if listed {
		d.logger.Debug("Dropping message from blacklisted subscriber", "conversation_id", id)
		d.dropped(DropBlacklisted)
	}
	return listed, nil
}

func (d *Dispatcher) dropped(reason string) {
	if d.hooks.OnDropped != nil {
		d.hooks.OnDropped(reason)
	}
}
