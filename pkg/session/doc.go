/*
Package session implements the Conversation State scratchpad and its concurrency rules.

A Manager serializes every operation on one conversation behind a reference
counted mutex (plus an optional distributed lock), so two turns of the same
subscriber never interleave while turns of different subscribers run in
parallel. The backing ports.ConversationStore decides durability; the default
in-memory store loses everything on restart.
*/
package session
