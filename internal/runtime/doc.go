// Package runtime implements the flow state machine that walks a domain.Graph.
//
// The engine is synchronous and side-effect free: Start and Advance take a
// conversation snapshot and return a Turn describing the new snapshot, the
// outbound effects and the history records. Delivery, persistence and
// per-conversation locking belong to the caller.
package runtime
