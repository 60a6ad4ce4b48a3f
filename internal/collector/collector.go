// Package collector orchestrates the collection of one source: it
// dispatches to the right connector, applies the missing-date policy and
// contains every connector failure at the source boundary.
package collector

import (
	"context"
	"fmt"
	"time"

	"dongmoa/eventworker/internal/connector"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/logger"
)

// Result is the outcome of collecting one source
type Result struct {
	Candidates []event.RawEvent
	Errors     []error
}

// Collector dispatches a source to its connector by kind. The kind set
// is closed, so dispatch is a plain switch rather than a plugin
// interface.
type Collector struct {
	api  *connector.APIConnector
	page *connector.PageConnector
}

// New creates a collector over the two connector variants
func New(api *connector.APIConnector, page *connector.PageConnector) *Collector {
	return &Collector{api: api, page: page}
}

// Collect runs one source end to end. It never panics or returns an
// error past this boundary; all failures land in Result.Errors.
func (c *Collector) Collect(ctx context.Context, src *event.SourceDescriptor) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, fmt.Errorf("collector panic for %s: %v", src.Name, r))
		}
	}()

	log := logger.ForSource(src.Name)
	log.Info().Str("kind", string(src.Kind)).Str("url", src.URL).Msg("Starting collection")

	var candidates []event.RawEvent
	var err error

	switch src.Kind {
	case event.SourceKindAPI:
		candidates, err = c.api.Collect(ctx, src)
		if err == nil {
			// API rows without a resolvable date were already dropped
			// by the connector.
			result.Candidates = candidates
		}
	case event.SourceKindPage:
		candidates, err = c.page.Collect(ctx, src)
		if err == nil {
			result.Candidates = applyMissingDateFallback(candidates, log)
		}
	default:
		err = fmt.Errorf("unknown source kind: %q", src.Kind)
	}

	if err != nil {
		log.Error().Err(err).Msg("Collection failed")
		result.Errors = append(result.Errors, err)
	}

	return result
}

// applyMissingDateFallback dates page candidates whose date text never
// resolved to "now". Dropping them would silently lose listings whose
// pages simply omit a date column; the fallback is deliberately lossy
// about ordering instead.
func applyMissingDateFallback(candidates []event.RawEvent, log *logger.Logger) []event.RawEvent {
	now := time.Now().Truncate(time.Minute)
	for i := range candidates {
		if candidates[i].StartAt.IsZero() {
			candidates[i].StartAt = now
			log.Debug().Str("title", candidates[i].Title).Msg("No date found, falling back to current time")
		}
	}
	return candidates
}
