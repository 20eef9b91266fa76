/*
Package observability exposes parley's Prometheus metrics.

Metrics owns a private registry and hands out the hook structs each component
accepts: domain.LifecycleHooks for the engine, bridge.Hooks for the dispatcher
and history.Hooks for the history pool. Handler serves the registry in the
Prometheus text format.
*/
package observability
