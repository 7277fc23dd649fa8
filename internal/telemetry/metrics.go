package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var MessagesSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "bus",
		Name:      "messages_sent_total",
		Help:      "Total number of messages enqueued on the bus, by type and priority.",
	},
	[]string{"type", "priority"},
)

var MessagesAcknowledgedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "bus",
		Name:      "messages_acknowledged_total",
		Help:      "Total number of messages acknowledged.",
	},
)

var MessagesExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "bus",
		Name:      "messages_expired_total",
		Help:      "Total number of expired messages reclaimed by garbage collection.",
	},
)

var HandlerPanicsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "supervisor",
		Name:      "handler_panics_total",
		Help:      "Total number of supervisor handler invocations that recovered from a panic, by (from, type).",
	},
	[]string{"from", "type"},
)

var NarrativesDeduplicatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "supervisor",
		Name:      "narratives_deduplicated_total",
		Help:      "Total number of narrative shifts suppressed as duplicates.",
	},
)

var OutboundBlockedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "supervisor",
		Name:      "outbound_blocked_total",
		Help:      "Total number of outbound publications blocked by the content filter, by destination.",
	},
	[]string{"destination"},
)

var DecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "cfo",
		Name:      "decisions_total",
		Help:      "Total number of decisions generated, by type and tier.",
	},
	[]string{"type", "tier"},
)

var DecisionCycleDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "nova",
		Subsystem: "cfo",
		Name:      "decision_cycle_duration_seconds",
		Help:      "Duration of a full gather-consult-assess-decide-execute-report cycle.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
)

var RiskMultiplierGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "nova",
		Subsystem: "cfo",
		Name:      "risk_multiplier",
		Help:      "Most recently computed swarm risk multiplier.",
	},
)

var ExecutionFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "nova",
		Subsystem: "cfo",
		Name:      "execution_failures_total",
		Help:      "Total number of decision executions that returned an error, by type.",
	},
	[]string{"type"},
)

var AdaptiveConfidenceGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "nova",
		Subsystem: "learning",
		Name:      "adaptive_confidence",
		Help:      "Most recently computed learning-engine confidence scalar.",
	},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "nova",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests served by the admin/status server, by method, route, and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// All returns every NOVA-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		MessagesSentTotal,
		MessagesAcknowledgedTotal,
		MessagesExpiredTotal,
		HandlerPanicsTotal,
		NarrativesDeduplicatedTotal,
		OutboundBlockedTotal,
		DecisionsTotal,
		DecisionCycleDuration,
		RiskMultiplierGauge,
		ExecutionFailuresTotal,
		AdaptiveConfidenceGauge,
		HTTPRequestDuration,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors
// and every NOVA-specific collector.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
