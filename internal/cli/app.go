// Package cli wires configuration into a running agent for the parley
// commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/flows"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/adapters/yamlflow"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/history"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
)

// App is a fully wired agent plus the resources it owns.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Agent   *parley.Agent
	History *history.Store
	Metrics *observability.Metrics

	redis *redisAdapter.Store
}

// LoadGraph returns the flow at path, or the built-in demo when path is empty.
func LoadGraph(path string) (*domain.Graph, error) {
	if path == "" {
		return flows.Demo()
	}
	return yamlflow.Load(path)
}

// Build opens every backend named by cfg and wires them around provider.
// The caller must Close the App.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, provider ports.Provider) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	graph, err := LoadGraph(cfg.Flow.Path)
	if err != nil {
		return nil, fmt.Errorf("error loading flow: %w", err)
	}

	if cfg.Metrics.Enabled {
		app.Metrics = observability.New()
	}

	if err := app.openHistory(ctx); err != nil {
		return nil, err
	}

	var historyStore ports.HistoryStore = app.History
	if len(cfg.History.Redact) > 0 {
		historyStore = middleware.NewPIIMiddleware(cfg.History.Redact)(historyStore)
	}

	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithHistory(historyStore),
		parley.WithProvider(provider),
		parley.WithMaxFallbacks(cfg.Flow.MaxFallbacks, cfg.Flow.GiveUp),
		parley.WithMaxInputSize(cfg.Server.MaxInputSize),
		parley.WithLockTTL(cfg.State.LockTTL),
	}
	if app.Metrics != nil {
		opts = append(opts,
			parley.WithLifecycleHooks(app.Metrics.LifecycleHooks(domain.LifecycleHooks{})),
			parley.WithBridgeHooks(app.Metrics.BridgeHooks()),
		)
	}

	var store ports.ConversationStore
	if cfg.State.RedisURL != "" {
		rs, err := redisAdapter.New(cfg.State.RedisURL,
			redisAdapter.WithPrefix(cfg.State.Prefix),
			redisAdapter.WithTTL(cfg.State.TTL),
		)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = rs
		store = rs
		opts = append(opts,
			parley.WithLocker(redisAdapter.NewLocker(rs.Client(), cfg.State.Prefix)),
			parley.WithBlacklist(redisAdapter.NewBlacklist(rs.Client(), cfg.State.Prefix)),
		)
	} else {
		store = memory.NewStore(memory.WithTTL(cfg.State.TTL))
	}
	if cfg.State.EncryptionKey != "" {
		active, fallback, err := cfg.State.Keys()
		if err != nil {
			app.Close()
			return nil, err
		}
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})(store)
	}
	opts = append(opts, parley.WithStore(store))

	agent, err := parley.New(graph, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Agent = agent
	return app, nil
}

func (a *App) openHistory(ctx context.Context) error {
	dialect, err := history.DialectFor(a.Config.History.Dialect)
	if err != nil {
		return err
	}
	hc := a.Config.History
	opts := []history.Option{
		history.WithLogger(a.Logger),
		history.WithHealthInterval(hc.HealthInterval),
		history.WithAcquireTimeout(hc.AcquireTimeout),
		history.WithOperationTimeout(hc.QueryTimeout),
		history.WithPoolSize(hc.MaxOpenConns, hc.MaxIdleConns, hc.ConnMaxLifetime),
	}
	if a.Metrics != nil {
		opts = append(opts, history.WithHooks(a.Metrics.HistoryHooks()))
	}
	store, err := history.Open(ctx, dialect, hc.DSN, opts...)
	if err != nil {
		return fmt.Errorf("error opening history: %w", err)
	}
	a.History = store
	return nil
}

// Ping checks the conversation store backend.
func (a *App) Ping(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Client().Ping(ctx).Err()
}

// Close releases every backend the App opened.
func (a *App) Close() error {
	var errs []error
	if a.History != nil {
		errs = append(errs, a.History.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the logging section. Logs go to
// Stderr so Stdout stays free for chat and JSON-RPC traffic.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.Format), nil
}
