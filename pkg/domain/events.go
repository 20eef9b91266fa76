package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventCapture   EventType = "capture"
	EventFallback  EventType = "fallback"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// NodeEvent represents a movement of a conversation inside the graph.
type NodeEvent struct {
	EventBase
	NodeID  string `json:"node_id"`
	Step    int    `json:"step"`
	Keyword string `json:"keyword,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnCapture   func(context.Context, *NodeEvent)
	OnFallback  func(context.Context, *NodeEvent)
}
