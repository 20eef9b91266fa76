package parley

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/yamlflow"
	"github.com/aretw0/parley/pkg/bridge"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

//go:embed VERSION
var version string

// Version is the release of this module.
var Version = strings.TrimSpace(version)

// Agent is the high-level entry point for the library. It wires a flow graph
// to conversation state, history and a delivery provider.
type Agent struct {
	graph      *domain.Graph
	engine     *runtime.Engine
	sessions   *session.Manager
	history    ports.HistoryStore
	dispatcher *bridge.Dispatcher

	store        ports.ConversationStore
	locker       ports.DistributedLocker
	lockTTL      time.Duration
	provider     ports.Provider
	blacklist    ports.Blacklist
	hooks        domain.LifecycleHooks
	bridgeHooks  bridge.Hooks
	maxFallbacks int
	giveUp       string
	maxInput     int
	logger       *slog.Logger
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithStore sets where conversations live (default: in memory).
func WithStore(s ports.ConversationStore) Option {
	return func(a *Agent) {
		a.store = s
	}
}

// WithLocker serializes turns across processes sharing the store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Agent) {
		a.locker = l
	}
}

// WithLockTTL bounds how long a distributed lock is held for one turn.
func WithLockTTL(ttl time.Duration) Option {
	return func(a *Agent) {
		a.lockTTL = ttl
	}
}

// WithHistory sets the interaction log (default: in memory).
func WithHistory(h ports.HistoryStore) Option {
	return func(a *Agent) {
		a.history = h
	}
}

// WithProvider sets the outbound transport (default: a recording provider).
func WithProvider(p ports.Provider) Option {
	return func(a *Agent) {
		a.provider = p
	}
}

// WithBlacklist sets the set of ids the agent ignores.
func WithBlacklist(b ports.Blacklist) Option {
	return func(a *Agent) {
		a.blacklist = b
	}
}

// WithLifecycleHooks registers observability hooks on the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// WithBridgeHooks registers turn level hooks on the dispatcher.
func WithBridgeHooks(hooks bridge.Hooks) Option {
	return func(a *Agent) {
		a.bridgeHooks = hooks
	}
}

// WithMaxFallbacks ends a capture after n consecutive fallbacks, sending
// message first when it is not empty.
func WithMaxFallbacks(n int, message string) Option {
	return func(a *Agent) {
		a.maxFallbacks = n
		a.giveUp = message
	}
}

// WithMaxInputSize caps inbound bodies.
func WithMaxInputSize(n int) Option {
	return func(a *Agent) {
		a.maxInput = n
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New builds an agent around graph. Every adapter left unset falls back to
// its in-memory implementation.
func New(graph *domain.Graph, opts ...Option) (*Agent, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	a := &Agent{graph: graph}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.history == nil {
		a.history = memory.NewHistory()
	}
	if a.provider == nil {
		a.provider = memory.NewProvider()
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(a.hooks),
		runtime.WithLogger(a.logger),
	}
	if a.maxFallbacks > 0 {
		engineOpts = append(engineOpts, runtime.WithMaxFallbacks(a.maxFallbacks, a.giveUp))
	}
	a.engine = runtime.NewEngine(graph, engineOpts...)

	sessionOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(a.locker))
	}
	if a.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(a.lockTTL))
	}
	a.sessions = session.NewManager(a.store, sessionOpts...)

	bridgeOpts := []bridge.Option{
		bridge.WithHooks(a.bridgeHooks),
		bridge.WithLogger(a.logger),
		bridge.WithMaxInputSize(a.maxInput),
	}
	if a.blacklist != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithBlacklist(a.blacklist))
	}
	a.dispatcher = bridge.New(a.engine, a.sessions, a.history, a.provider, bridgeOpts...)

	return a, nil
}

// Load compiles the YAML flow at path (a file or a directory) and builds an
// agent around it.
func Load(path string, opts ...Option) (*Agent, error) {
	graph, err := yamlflow.Load(path)
	if err != nil {
		return nil, err
	}
	return New(graph, opts...)
}

// Graph returns the flow graph.
func (a *Agent) Graph() *domain.Graph {
	return a.graph
}

// Dispatcher returns the bridge that adapters drive.
func (a *Agent) Dispatcher() *bridge.Dispatcher {
	return a.dispatcher
}

// Sessions returns the conversation manager.
func (a *Agent) Sessions() *session.Manager {
	return a.sessions
}

// Provider returns the outbound transport in use.
func (a *Agent) Provider() ports.Provider {
	return a.provider
}

// Handle processes one inbound message from id.
func (a *Agent) Handle(ctx context.Context, id string, in domain.Inbound) ([]domain.Effect, error) {
	return a.dispatcher.HandleInbound(ctx, id, in)
}

// Trigger starts the node bound to event for id, seeding payload into its state.
func (a *Agent) Trigger(ctx context.Context, event, id string, payload map[string]any) ([]domain.Effect, error) {
	return a.dispatcher.HandleExternalTrigger(ctx, event, id, payload)
}

// Send delivers a message outside of any flow.
func (a *Agent) Send(ctx context.Context, to string, msg domain.Message) error {
	return a.dispatcher.Send(ctx, to, msg)
}

// Latest returns the most recent history record for id, or nil.
func (a *Agent) Latest(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	return a.dispatcher.Latest(ctx, id)
}
