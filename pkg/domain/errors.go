package domain

import (
	"errors"
	"fmt"
)

// Graph construction errors.
var (
	// ErrDuplicateTrigger is returned when two nodes register the same keyword or event.
	ErrDuplicateTrigger = errors.New("duplicate trigger")
	// ErrUnknownNode is returned when a branch or jump names a node that does not exist.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidNode is returned for structurally invalid nodes.
	ErrInvalidNode = errors.New("invalid node")
)

// Engine errors.
var (
	// ErrUndefinedOutcome is returned when a continuation yields no outcome, or
	// an outcome that is not legal for the step it resolves.
	ErrUndefinedOutcome = errors.New("undefined step outcome")
	// ErrIllegalJump is returned when a continuation jumps to a node that is not
	// a declared branch of the current node.
	ErrIllegalJump = errors.New("jump target is not a declared branch")
	// ErrNotAwaiting is returned when a reply is fed to an idle conversation.
	ErrNotAwaiting = errors.New("conversation is not awaiting a reply")
	// ErrUnknownTrigger is returned when an external trigger names no registered event.
	ErrUnknownTrigger = errors.New("unknown trigger")
)

// Store errors.
var (
	// ErrUnavailable is returned when the backing store cannot be reached.
	// It is transient; callers may retry.
	ErrUnavailable = errors.New("store unavailable")
	// ErrMalformed is returned when a persisted record cannot be decoded.
	ErrMalformed = errors.New("malformed record")
	// ErrConversationNotFound is returned when a conversation ID cannot be found in the store.
	ErrConversationNotFound = errors.New("conversation not found")
)

// ConfigError reports an invalid graph definition. It is fatal at startup.
type ConfigError struct {
	Node    string
	Trigger string
	Err     error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Node != "" && e.Trigger != "":
		return fmt.Sprintf("graph config: node %q trigger %q: %v", e.Node, e.Trigger, e.Err)
	case e.Node != "":
		return fmt.Sprintf("graph config: node %q: %v", e.Node, e.Err)
	default:
		return fmt.Sprintf("graph config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EngineError reports a failed turn. The conversation's resume point and
// state are left as they were before the turn.
type EngineError struct {
	Conversation string
	Node         string
	Step         int
	Err          error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("turn failed for %q at %s#%d: %v", e.Conversation, e.Node, e.Step, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
