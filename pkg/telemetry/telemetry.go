// Package telemetry exposes the service's Prometheus collectors. Everything is
// registered on the default registry and served via promhttp on /metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived counts inbound webhook deliveries by kind
	// ("file_shared", "interaction").
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minuteman_events_received_total",
		Help: "Inbound webhook deliveries by kind.",
	}, []string{"kind"})

	// DuplicatesDropped counts deliveries rejected by the dedup gate.
	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minuteman_duplicates_dropped_total",
		Help: "Deliveries rejected as duplicates by the dedup gate.",
	})

	// DedupDegraded counts flips of the dedup gate into process-local
	// degraded mode.
	DedupDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minuteman_dedup_degraded_total",
		Help: "Times the dedup gate fell back to its process-local set.",
	})

	// Commits counts committer outcomes ("committed", "partial", "conflict",
	// "failed").
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minuteman_commits_total",
		Help: "Dual-target commit outcomes.",
	}, []string{"outcome"})

	// TaskIDFallbacks counts identifiers issued via the timestamp fallback
	// because the durable counter was unreachable.
	TaskIDFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minuteman_task_id_fallbacks_total",
		Help: "Task identifiers issued via the timestamp fallback scheme.",
	})

	// CacheMisses counts artifact cache misses that triggered re-acquisition
	// from the platform.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minuteman_artifact_cache_misses_total",
		Help: "Artifact cache misses resolved by re-downloading from origin.",
	})

	// ExternalCallSeconds observes latency of calls to external collaborators
	// by system ("slack", "docstore", "directory", "inference").
	ExternalCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minuteman_external_call_seconds",
		Help:    "Latency of external collaborator calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"system", "op"})
)

// ObserveCall records one external call's duration.
func ObserveCall(system, op string, start time.Time) {
	ExternalCallSeconds.WithLabelValues(system, op).Observe(time.Since(start).Seconds())
}
