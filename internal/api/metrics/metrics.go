// Package metrics defines the custom Prometheus metrics of the marketplace
// API. It is the single source of truth for metric names, labels and help
// strings. All metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// AssignmentTransitionsTotal counts committed status changes.
// Labels:
//   - to: the status the assignment moved into (e.g. "accepted")
//   - source: "api" or "reconciler"
var AssignmentTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_transitions_total",
		Help:      "Total number of committed assignment status transitions.",
	},
	[]string{"to", "source"},
)

// AssignmentConflictsTotal counts operations rejected because the assignment
// was not in the required state.
// Label:
//   - operation: the engine operation (e.g. "accept", "pay")
var AssignmentConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_conflicts_total",
		Help:      "Total number of lifecycle operations rejected with a conflict.",
	},
	[]string{"operation"},
)

// AssignmentsCreatedTotal counts new assignments.
// Label:
//   - category: the category name
var AssignmentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_created_total",
		Help:      "Total number of assignments created, by category.",
	},
	[]string{"category"},
)

// PayoutsTotal counts settled payouts.
var PayoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payouts_total",
		Help:      "Total number of recorded helper payouts.",
	},
)

// ── Reconciler metrics ────────────────────────────────────────────────────────

// ReconcileRunsTotal counts sweep runs.
// Label:
//   - result: "ok", "error" or "locked" (another replica held the lock)
var ReconcileRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_runs_total",
		Help:      "Total number of overdue sweeps, by outcome.",
	},
	[]string{"result"},
)

// ReconcileAssignmentsTotal counts per-assignment sweep outcomes.
// Label:
//   - outcome: "transitioned", "skipped" or "failed"
var ReconcileAssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_assignments_total",
		Help:      "Assignments examined by the overdue sweep, by outcome.",
	},
	[]string{"outcome"},
)

// ReconcileDuration measures one sweep end to end.
var ReconcileDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of an overdue sweep.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts notification delivery attempts.
// Labels:
//   - target: "channel" or "direct"
//   - result: "sent", "failed", "dropped" (queue full) or "duplicate"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of lifecycle notifications, by target and result.",
	},
	[]string{"target", "result"},
)

// NotificationQueueDepth tracks pending events in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SummarizerDuration measures calls to the external summarizer.
// Label:
//   - result: "ok" or "error"
var SummarizerDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "summarizer_duration_seconds",
		Help:      "Duration of summarizer requests.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	},
	[]string{"result"},
)
