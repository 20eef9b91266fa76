package domain

import "maps"

// Inbound is a raw message received from a subscriber.
type Inbound struct {
	Body  string `json:"body"`
	Media string `json:"media,omitempty"`
}

// Effect is an outbound message the host must deliver.
type Effect struct {
	To      string  `json:"to"`
	Message Message `json:"message"`
}

// Capture is handed to a Continuation. It exposes the captured reply and a
// working copy of the conversation state. Changes are committed only when the
// continuation succeeds.
type Capture struct {
	ConversationID string
	Body           string
	Media          string

	state   map[string]any
	effects []Effect
}

// NewCapture builds the capture for a reply. state is copied.
func NewCapture(conversationID string, in Inbound, state map[string]any) *Capture {
	work := make(map[string]any, len(state))
	maps.Copy(work, state)
	return &Capture{
		ConversationID: conversationID,
		Body:           in.Body,
		Media:          in.Media,
		state:          work,
	}
}

// Get returns a state value.
func (c *Capture) Get(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// GetString returns a state value as a string, or "" when absent or not a string.
func (c *Capture) GetString(key string) string {
	s, _ := c.state[key].(string)
	return s
}

// Set stores a state value.
func (c *Capture) Set(key string, value any) {
	c.state[key] = value
}

// Delete removes a state value.
func (c *Capture) Delete(key string) {
	delete(c.state, key)
}

// State returns a copy of the working state.
func (c *Capture) State() map[string]any {
	out := make(map[string]any, len(c.state))
	maps.Copy(out, c.state)
	return out
}

// Send queues a text message to the conversation.
func (c *Capture) Send(text string) {
	c.SendMessage(Message{Text: text})
}

// SendMessage queues an arbitrary message to the conversation.
func (c *Capture) SendMessage(m Message) {
	if m.IsZero() {
		return
	}
	c.effects = append(c.effects, Effect{To: c.ConversationID, Message: m})
}

// Effects returns the messages queued by the continuation.
func (c *Capture) Effects() []Effect {
	return c.effects
}

// Commit returns the working state to be applied to the conversation.
func (c *Capture) Commit() map[string]any {
	return c.state
}
