/*
Package ports defines the driven ports (interfaces) for the parley engine.

These interfaces decouple the flow engine and the dispatch bridge from concrete
storage backends and message transports.

# Key Interfaces

  - ConversationStore: Persists the per-conversation resume point and state map.
  - DistributedLocker: Provides distributed locking for concurrent access to one conversation.
  - HistoryStore: The durable, append-only interaction log.
  - Blacklist: Set membership of silenced subscribers.
  - Provider: The outbound message transport.
*/
package ports
