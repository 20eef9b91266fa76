package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/parley/pkg/bridge"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/history"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parley"

// Metrics collects engine, dispatch and history pool metrics.
type Metrics struct {
	registry *prometheus.Registry

	nodeVisits       *prometheus.CounterVec
	captures         *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	turns            *prometheus.CounterVec
	turnErrors       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	dropped          *prometheus.CounterVec
	deliveryFailures prometheus.Counter
	historyFailures  prometheus.Counter
	probeFailures    prometheus.Counter
	poolRecoveries   prometheus.Counter
	recoveryDuration prometheus.Histogram
	unavailable      *prometheus.CounterVec
}

// New creates the metrics and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits",
		}, []string{"node_id"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Turns that suspended on a capture step",
		}, []string{"node_id"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Capture steps that re-prompted",
		}, []string{"node_id"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by kind and final outcome",
		}, []string{"kind", "outcome"}),
		turnErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_errors_total",
			Help:      "Turns aborted with an error",
		}, []string{"kind"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of a turn including delivery and history writes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Inbound messages that produced no turn",
		}, []string{"reason"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound messages the provider failed to deliver",
		}),
		historyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_failures_total",
			Help:      "History records that could not be appended",
		}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "probe_failures_total",
			Help:      "Failed pool liveness probes",
		}),
		poolRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "pool_recoveries_total",
			Help:      "Connection pools replaced after a failed probe",
		}),
		recoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "pool_recovery_seconds",
			Help:      "Time spent building and swapping in a new pool",
			Buckets:   prometheus.DefBuckets,
		}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "unavailable_total",
			Help:      "Operations rejected because the pool was unavailable",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.nodeVisits,
		m.captures,
		m.fallbacks,
		m.turns,
		m.turnErrors,
		m.turnDuration,
		m.dropped,
		m.deliveryFailures,
		m.historyFailures,
		m.probeFailures,
		m.poolRecoveries,
		m.recoveryDuration,
		m.unavailable,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LifecycleHooks returns engine hooks recording node traffic. The hooks in
// next, typically logging, run after the metric is recorded.
func (m *Metrics) LifecycleHooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
			call(next.OnNodeEnter, ctx, e)
		},
		OnNodeLeave: next.OnNodeLeave,
		OnCapture: func(ctx context.Context, e *domain.NodeEvent) {
			m.captures.WithLabelValues(e.NodeID).Inc()
			call(next.OnCapture, ctx, e)
		},
		OnFallback: func(ctx context.Context, e *domain.NodeEvent) {
			m.fallbacks.WithLabelValues(e.NodeID).Inc()
			call(next.OnFallback, ctx, e)
		},
	}
}

func call(fn func(context.Context, *domain.NodeEvent), ctx context.Context, e *domain.NodeEvent) {
	if fn != nil {
		fn(ctx, e)
	}
}

// BridgeHooks returns dispatcher hooks recording turns and failures.
func (m *Metrics) BridgeHooks() bridge.Hooks {
	return bridge.Hooks{
		OnTurn: func(kind string, outcome domain.Outcome, elapsed time.Duration) {
			m.turns.WithLabelValues(kind, domain.Kind(outcome)).Inc()
			m.turnDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		},
		OnTurnError: func(kind string, _ error) {
			m.turnErrors.WithLabelValues(kind).Inc()
		},
		OnDropped: func(reason string) {
			m.dropped.WithLabelValues(reason).Inc()
		},
		OnDeliveryFailure: func(error) {
			m.deliveryFailures.Inc()
		},
		OnHistoryFailure: func(error) {
			m.historyFailures.Inc()
		},
	}
}

// HistoryHooks returns pool health hooks.
func (m *Metrics) HistoryHooks() history.Hooks {
	return history.Hooks{
		OnProbeFailure: func(error) {
			m.probeFailures.Inc()
		},
		OnRecovered: func(elapsed time.Duration) {
			m.poolRecoveries.Inc()
			m.recoveryDuration.Observe(elapsed.Seconds())
		},
		OnUnavailable: func(op string) {
			m.unavailable.WithLabelValues(op).Inc()
		},
	}
}
