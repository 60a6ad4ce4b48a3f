// Package runner sweeps all enabled sources, invoking the collector and
// merger per source and recording exactly one run log row per attempt.
// The runner holds no global state; an external trigger (HTTP or timer)
// may invoke it repeatedly and concurrently.
package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dongmoa/eventworker/internal/collector"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/internal/merger"
	"dongmoa/eventworker/internal/metrics"
	"dongmoa/eventworker/logger"
	"dongmoa/eventworker/services/publisher"
	"dongmoa/eventworker/services/store"
)

// SourceSummary reports the outcome of one source within one sweep
type SourceSummary struct {
	SourceID  int64           `json:"sourceId"`
	Source    string          `json:"source"`
	Status    event.RunStatus `json:"status"`
	Collected int             `json:"collected"`
	Added     int             `json:"added"`
	Updated   int             `json:"updated"`
	Error     string          `json:"error,omitempty"`
}

// Runner drives the full collection sweep
type Runner struct {
	store     store.Store
	collector *collector.Collector
	merger    *merger.Merger
	publisher publisher.Publisher
}

// New creates a runner. The publisher may be a Noop.
func New(s store.Store, c *collector.Collector, m *merger.Merger, pub publisher.Publisher) *Runner {
	if pub == nil {
		pub = publisher.Noop{}
	}
	return &Runner{store: s, collector: c, merger: m, publisher: pub}
}

// RunAll sweeps every active source of every active district, one at a
// time. A failing source never stops the loop; every source gets exactly
// one run log row.
func (r *Runner) RunAll(ctx context.Context) ([]SourceSummary, error) {
	log := logger.ForRunner()

	sources, err := r.store.ListEnabledSources(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Int("sources", len(sources)).Msg("Starting collection sweep")
	summaries := make([]SourceSummary, 0, len(sources))
	for _, src := range sources {
		summaries = append(summaries, r.RunSource(ctx, src))
	}

	metrics.RunsTotal.Inc()
	log.Info().Int("sources", len(sources)).Msg("Collection sweep completed")
	return summaries, nil
}

// RunSource collects and merges one source, records the run log row and
// refreshes the source's last-collected timestamp.
func (r *Runner) RunSource(ctx context.Context, src *event.SourceDescriptor) SourceSummary {
	log := logger.ForSource(src.Name)
	startedAt := time.Now()

	summary := SourceSummary{SourceID: src.ID, Source: src.Name}

	result := r.collector.Collect(ctx, src)
	if len(result.Errors) > 0 && len(result.Candidates) == 0 {
		summary.Status = event.RunStatusFailed
		summary.Error = result.Errors[0].Error()
		metrics.SourcesCollected.WithLabelValues("failed").Inc()
	} else {
		merged := r.merger.Merge(ctx, result.Candidates, src.ID)
		summary.Status = event.RunStatusSuccess
		summary.Collected = len(result.Candidates)
		summary.Added = merged.Added
		summary.Updated = merged.Updated

		metrics.SourcesCollected.WithLabelValues("success").Inc()
		metrics.CandidatesTotal.Add(float64(summary.Collected))
		metrics.EventsAdded.Add(float64(merged.Added))
		metrics.EventsUpdated.Add(float64(merged.Updated))

		r.publishAdded(src, merged.AddedEvents)
	}

	runLog := &event.CollectionRunLog{
		ID:           uuid.NewString(),
		DataSourceID: src.ID,
		Status:       summary.Status,
		Collected:    summary.Collected,
		Added:        summary.Added,
		Updated:      summary.Updated,
		ErrorMessage: summary.Error,
		StartedAt:    startedAt,
		CompletedAt:  time.Now(),
	}
	if err := r.store.InsertRunLog(ctx, runLog); err != nil {
		log.Error().Err(err).Msg("Failed to write run log")
	}

	// Touched on success and failure alike
	if err := r.store.TouchSourceCollected(ctx, src.ID, startedAt); err != nil {
		log.Error().Err(err).Msg("Failed to update last collected time")
	}

	log.Info().
		Str("status", string(summary.Status)).
		Int("collected", summary.Collected).
		Int("added", summary.Added).
		Int("updated", summary.Updated).
		Msg("Source run finished")
	return summary
}

// TestSource performs a dry collection of one source: it extracts and
// normalizes but neither merges, logs nor touches timestamps.
func (r *Runner) TestSource(ctx context.Context, src *event.SourceDescriptor) ([]event.RawEvent, []error) {
	result := r.collector.Collect(ctx, src)
	return result.Candidates, result.Errors
}

func (r *Runner) publishAdded(src *event.SourceDescriptor, added []*event.PersistedEvent) {
	for _, ev := range added {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.LogError("runner", err, "Failed to marshal event: %s", ev.Title)
			continue
		}
		if err := r.publisher.Publish(src.Name, data); err != nil {
			logger.LogError("runner", err, "Failed to publish event: %s", ev.Title)
		}
	}
}
