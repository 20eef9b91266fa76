/*
Package bridge connects the transport boundary to the flow engine.

A Dispatcher receives inbound messages and external triggers, serializes turns
per conversation through session.Manager, asks the engine for the effects of
the turn, delivers them through a ports.Provider and appends the turn's
history records. History is written after delivery and its failures are only
logged, so an unavailable history store never delays a reply.

Blacklisted subscribers are dropped before anything else happens: no reply,
no state change, no history row.
*/
package bridge
