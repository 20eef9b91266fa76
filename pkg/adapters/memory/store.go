package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.ConversationStore in memory.
// Safe for concurrent use. Contents are lost when the process exits.
type Store struct {
	data map[string]*domain.Conversation
	mu   sync.RWMutex

	ttl time.Duration
	now func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires conversations whose last activity is older than ttl.
// Expired entries are dropped lazily on Load and List. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]*domain.Conversation),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of the conversation.
func (s *Store) Save(ctx context.Context, conv *domain.Conversation) error {
	cp := conv.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[conv.ID] = cp
	return nil
}

// Load returns a copy of the stored conversation so callers cannot mutate the
// store through the pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	conv, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	if s.expired(conv) {
		s.mu.Lock()
		delete(s.data, id)
		s.mu.Unlock()
		return nil, domain.ErrConversationNotFound
	}
	return conv.Snapshot(), nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the live conversation IDs, pruning expired ones.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data))
	for id, conv := range s.data {
		if s.expired(conv) {
			delete(s.data, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) expired(conv *domain.Conversation) bool {
	if s.ttl <= 0 || conv.LastActivity.IsZero() {
		return false
	}
	return s.now().Sub(conv.LastActivity) > s.ttl
}
