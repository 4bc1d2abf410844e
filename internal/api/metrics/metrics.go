// Package metrics defines the custom Prometheus metrics of the task tracker.
// Metrics are registered with the default registry on package init via
// promauto and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasktracker"

// ── Broadcast metrics ─────────────────────────────────────────────────────────

// EventsPublishedTotal counts change events handed to the broadcast channel.
// Label:
//   - event: the event type (e.g. "taskCreated")
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of change events published.",
	},
	[]string{"event"},
)

// DeliveriesTotal counts per-subscriber delivery attempts.
// Label:
//   - result: "delivered" or "dropped" (subscriber buffer full)
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_deliveries_total",
		Help:      "Total number of per-connection event deliveries, labelled by result.",
	},
	[]string{"result"},
)

// BroadcastErrorsTotal counts broadcast failures that were swallowed.
// Label:
//   - reason: e.g. "relay_publish", "relay_decode", "ws_write"
var BroadcastErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_errors_total",
		Help:      "Total number of broadcast errors, by reason.",
	},
	[]string{"reason"},
)

// ConnectedClients tracks the number of live event-stream subscribers.
var ConnectedClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_clients",
		Help:      "Current number of subscribed event-stream connections.",
	},
)

// ── Domain metrics ────────────────────────────────────────────────────────────

// TasksCreatedTotal counts newly created tasks.
// Label:
//   - priority: "low", "medium", or "high"
var TasksCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created, by priority.",
	},
	[]string{"priority"},
)

// IdempotentReplaysTotal counts task creations answered from an earlier
// Idempotency-Key.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of task creations replayed from an idempotency key.",
	},
)
