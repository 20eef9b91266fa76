package domain

import (
	"maps"
	"time"
)

// ResumePoint identifies where a conversation continues on its next inbound message.
type ResumePoint struct {
	Node string `json:"node"`
	Step int    `json:"step"`

	// Keyword is the trigger (keyword or event) that entered the flow.
	Keyword string `json:"keyword,omitempty"`

	// Fallbacks counts consecutive re-prompts of the current step.
	Fallbacks int `json:"fallbacks,omitempty"`
}

// Conversation is the runtime snapshot of one subscriber.
type Conversation struct {
	ID string `json:"id"`

	// Resume is nil while the conversation is idle.
	Resume *ResumePoint `json:"resume,omitempty"`

	// State holds the scratchpad captured while a flow is in progress.
	State map[string]any `json:"state"`

	LastActivity time.Time `json:"last_activity"`
}

// NewConversation creates an idle conversation.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:    id,
		State: make(map[string]any),
	}
}

// Idle reports whether the conversation has no pending resume point.
func (c *Conversation) Idle() bool {
	return c.Resume == nil
}

// Snapshot returns a copy that can be mutated without affecting c.
// State values are copied shallowly; they are expected to be scalars.
func (c *Conversation) Snapshot() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.State = make(map[string]any, len(c.State))
	maps.Copy(cp.State, c.State)
	if c.Resume != nil {
		rp := *c.Resume
		cp.Resume = &rp
	}
	return &cp
}
