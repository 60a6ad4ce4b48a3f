// Package metrics exposes collection counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts completed fleet sweeps
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dongmoa_runs_total",
		Help: "Number of completed collection sweeps",
	})

	// SourcesCollected counts per-source collection attempts by outcome
	SourcesCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dongmoa_sources_collected_total",
		Help: "Number of per-source collection attempts",
	}, []string{"status"})

	// CandidatesTotal counts extracted candidate events
	CandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dongmoa_candidates_total",
		Help: "Number of candidate events extracted from sources",
	})

	// EventsAdded counts newly persisted events
	EventsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dongmoa_events_added_total",
		Help: "Number of events newly persisted",
	})

	// EventsUpdated counts refreshed events
	EventsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dongmoa_events_updated_total",
		Help: "Number of persisted events refreshed by re-collection",
	})
)
