package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// ConversationStore defines the interface for persisting in-flight conversations.
// Implementations are not required to survive a process restart.
type ConversationStore interface {
	// Save persists the conversation under its ID.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Load retrieves the conversation for a given ID.
	// Returns domain.ErrConversationNotFound if the conversation does not exist.
	Load(ctx context.Context, id string) (*domain.Conversation, error)

	// Delete removes the conversation for a given ID.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of the stored conversations.
	List(ctx context.Context) ([]string, error)
}

// HistoryStore is the durable, append-only log of interactions.
type HistoryStore interface {
	// Append commits rec before returning. On success rec.ID and rec.CreatedAt
	// are populated. Connectivity failures are reported as domain.ErrUnavailable.
	Append(ctx context.Context, rec *domain.HistoryRecord) error

	// LatestFor returns the most recent record for phone, or nil when there is none.
	LatestFor(ctx context.Context, phone string) (*domain.HistoryRecord, error)
}

// Blacklist is the set of subscribers whose messages are dropped.
type Blacklist interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Contains(ctx context.Context, id string) (bool, error)
}
