// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitledger"

// Outcome labels for LedgerEvents.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	// LedgerEvents counts ledger mutations by event kind and outcome.
	LedgerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "events_total",
		Help:      "Ledger mutations by event kind and outcome.",
	}, []string{"kind", "outcome"})

	// CommitDuration observes how long a ledger transition holds the group lock.
	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "commit_duration_seconds",
		Help:      "Time spent applying one ledger transition.",
		Buckets:   prometheus.DefBuckets,
	})

	// RPCRequests counts Connect calls by procedure and code.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Connect RPC calls by procedure and result code.",
	}, []string{"procedure", "code"})

	// RPCDuration observes Connect call latency by procedure.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "duration_seconds",
		Help:      "Connect RPC latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure"})

	// ReconcileRuns counts background consistency runs by result.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Background consistency checks by result.",
	}, []string{"result"})

	// InconsistentGroups is the number of groups whose stored balances
	// diverged from replay in the last reconcile run.
	InconsistentGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "inconsistent_groups",
		Help:      "Groups found inconsistent by the last reconcile run.",
	})

	// EventMessages counts broker deliveries by message type and disposition.
	EventMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "messages_total",
		Help:      "Broker deliveries by message type and disposition (ack, retry, requeue, drop, dead).",
	}, []string{"type", "disposition"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
