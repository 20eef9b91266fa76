package middleware

import "github.com/aretw0/parley/pkg/ports"

// Middleware allows wrapping a ConversationStore to add behavior.
type Middleware func(ports.ConversationStore) ports.ConversationStore

// HistoryMiddleware allows wrapping a HistoryStore to add behavior.
type HistoryMiddleware func(ports.HistoryStore) ports.HistoryStore
