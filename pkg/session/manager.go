package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for LastActivity.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Manager on top of the given store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the conversation.
// fn must not call other locking Manager methods for the same id.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"conversation_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Update loads the conversation (creating an idle one for an unseen id), runs
// fn under the conversation lock and saves the result when fn succeeds.
// When fn fails nothing is written, so the stored conversation is unchanged.
func (m *Manager) Update(ctx context.Context, id string, fn func(context.Context, *domain.Conversation) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		conv, err := m.LoadLocked(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, conv); err != nil {
			return err
		}
		return m.SaveLocked(ctx, conv)
	})
}

// LoadLocked is Load for callers already inside WithLock for id.
func (m *Manager) LoadLocked(ctx context.Context, id string) (*domain.Conversation, error) {
	return m.loadOrNew(ctx, id)
}

// SaveLocked stamps LastActivity and saves conv. The caller must hold the
// lock for conv.ID via WithLock.
func (m *Manager) SaveLocked(ctx context.Context, conv *domain.Conversation) error {
	conv.LastActivity = m.now().UTC()
	if err := m.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (m *Manager) loadOrNew(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return domain.NewConversation(id), nil
}

// Load retrieves a conversation. Unseen ids yield a fresh idle conversation
// that is not persisted.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		conv, err = m.loadOrNew(ctx, id)
		return err
	})
	return conv, err
}

// Get returns a state value of the conversation.
func (m *Manager) Get(ctx context.Context, id, key string) (any, bool, error) {
	conv, err := m.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	v, ok := conv.State[key]
	return v, ok, nil
}

// Set stores a state value on the conversation.
func (m *Manager) Set(ctx context.Context, id, key string, value any) error {
	return m.Update(ctx, id, func(_ context.Context, conv *domain.Conversation) error {
		conv.State[key] = value
		return nil
	})
}

// Clear empties the state map of the conversation. The resume point is kept.
func (m *Manager) Clear(ctx context.Context, id string) error {
	return m.Update(ctx, id, func(_ context.Context, conv *domain.Conversation) error {
		conv.State = make(map[string]any)
		return nil
	})
}

// Reset deletes the conversation, returning it to idle with an empty state.
func (m *Manager) Reset(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}
