// Package merger deduplicates collected candidates against persisted
// events. Identity is the exact (title, start timestamp) pair; no fuzzy
// matching.
package merger

import (
	"context"
	"time"

	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/logger"
	"dongmoa/eventworker/services/store"
)

// Result carries the per-source merge counts and the records that were
// newly inserted (for downstream publication).
type Result struct {
	Added       int
	Updated     int
	AddedEvents []*event.PersistedEvent
}

// Merger writes candidates through the event store
type Merger struct {
	events store.EventStore
}

// New creates a merger on top of an event store
func New(events store.EventStore) *Merger {
	return &Merger{events: events}
}

// Merge processes each candidate independently: an existing event is
// refreshed (description, origin URL, last-synced only; the first
// collection wins on everything else), a new one is inserted with all
// candidate fields. A failure on one candidate never blocks the rest,
// and candidates are deliberately not wrapped in one transaction.
func (m *Merger) Merge(ctx context.Context, candidates []event.RawEvent, sourceID int64) Result {
	var result Result
	log := logger.ForMerger()
	now := time.Now()

	for _, candidate := range candidates {
		existing, err := m.events.FindEventByIdentity(ctx, candidate.Title, candidate.StartAt)
		if err != nil {
			log.Error().Err(err).Str("title", candidate.Title).Msg("Identity lookup failed")
			continue
		}

		if existing != nil {
			err := m.events.RefreshEvent(ctx, existing.ID, candidate.Description, candidate.OriginalURL, now)
			if err != nil {
				log.Error().Err(err).Str("title", candidate.Title).Msg("Failed to refresh event")
				continue
			}
			result.Updated++
			continue
		}

		persisted := &event.PersistedEvent{
			RawEvent:     candidate,
			DataSourceID: sourceID,
		}
		if err := m.events.InsertEvent(ctx, persisted); err != nil {
			log.Error().Err(err).Str("title", candidate.Title).Msg("Failed to insert event")
			continue
		}
		result.Added++
		result.AddedEvents = append(result.AddedEvents, persisted)
	}

	return result
}
