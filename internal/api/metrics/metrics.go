// Package metrics defines and registers all custom Prometheus metrics for the
// parcel tracking auth service. It is the single source of truth for metric
// names, labels, and help strings.
//
// All collectors are registered with the default registry through promauto, so
// importing the package is enough. HTTP request metrics come from the
// echoprometheus middleware wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, labelled by result.",
	},
	[]string{"result"},
)

// TokenIssueDuration measures the time spent in a successful login or register
// call, bcrypt included.
var TokenIssueDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "token_issue_duration_seconds",
		Help:      "Duration of login and register calls that issued a token.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Health metrics ────────────────────────────────────────────────────────────

// HealthProbeFailuresTotal counts failed dependency probes.
// Label:
//   - dependency: "database", "cache" or "rabbitmq"
var HealthProbeFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "health_probe_failures_total",
		Help:      "Total number of dependency probes that reported unhealthy.",
	},
	[]string{"dependency"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// AuthEventsDispatchedTotal counts auth events handed to sinks.
// Labels:
//   - type: the event type (e.g. "user.logged_in")
//   - result: "ok" or "error"
var AuthEventsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dispatched_total",
		Help:      "Total number of auth events delivered to sinks, by type and result.",
	},
	[]string{"type", "result"},
)

// AuthEventsDroppedTotal counts events discarded because a worker queue was full.
var AuthEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of auth events dropped because the dispatcher was saturated.",
	},
)

// AuthEventsQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuthEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of auth events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
