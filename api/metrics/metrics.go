// Package metrics defines the Prometheus collectors for the real-time layer and
// the approval workflow. Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "changeorders"

// Drop reasons for EventsDroppedTotal
const (
	ReasonOffline      = "offline"
	ReasonBackpressure = "backpressure"
)

// SessionsActive is the number of identities with a live session
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of identities with a registered live session.",
	},
)

// EventsDeliveredTotal counts events handed to a live session's outbound path.
// Label:
//   - type: chat, status_change or new_change_order
var EventsDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Events handed to a live session.",
	},
	[]string{"type"},
)

// EventsDroppedTotal counts events that reached no connection.
// Labels:
//   - type: the event type
//   - reason: offline (no live session) or backpressure (outbound buffer full)
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events not delivered, by reason.",
	},
	[]string{"type", "reason"},
)

// ApprovalTransitionsTotal counts persisted status transitions
var ApprovalTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_transitions_total",
		Help:      "Change order status transitions written by approval processing.",
	},
	[]string{"from", "to"},
)

// ApprovalConflictsTotal counts compare-and-set writes lost to a concurrent transition
var ApprovalConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_conflicts_total",
		Help:      "Status writes skipped because the order had already moved on.",
	},
)

// ApprovalDeferredTotal counts orders left for a later run after a store error
var ApprovalDeferredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_deferred_total",
		Help:      "Orders skipped by approval processing because the store write failed.",
	},
)

// InboundDiscardedTotal counts inbound connection messages dropped as malformed
var InboundDiscardedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_discarded_total",
		Help:      "Inbound session messages discarded as malformed.",
	},
)

// HTTPRequestDuration measures handled HTTP requests.
// Labels:
//   - method: request method
//   - route: the mux path template, e.g. /api/v1/change-orders/{id}
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// ChangeOrdersByStatus is refreshed by the scheduler from the record store.
// Labels:
//   - status: approval status
var ChangeOrdersByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_orders",
		Help:      "Change orders in the record store by approval status.",
	},
	[]string{"status"},
)
