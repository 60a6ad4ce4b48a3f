package store

import (
	"context"
	"time"

	"dongmoa/eventworker/internal/event"
)

// DistrictStore reads and writes districts
type DistrictStore interface {
	ListDistricts(ctx context.Context) ([]*event.District, error)
	CreateDistrict(ctx context.Context, d *event.District) error
}

// SourceStore reads and writes source descriptors
type SourceStore interface {
	// ListSources returns all sources, optionally filtered by district
	ListSources(ctx context.Context, districtID int64) ([]*event.SourceDescriptor, error)

	// ListEnabledSources returns active sources belonging to active districts
	ListEnabledSources(ctx context.Context) ([]*event.SourceDescriptor, error)

	GetSource(ctx context.Context, id int64) (*event.SourceDescriptor, error)
	CreateSource(ctx context.Context, src *event.SourceDescriptor) error
	UpdateSource(ctx context.Context, src *event.SourceDescriptor) error
	DeleteSource(ctx context.Context, id int64) error

	// TouchSourceCollected updates only the last-collected timestamp
	TouchSourceCollected(ctx context.Context, id int64, at time.Time) error
}

// EventStore reads and writes persisted events through the identity key
type EventStore interface {
	// FindEventByIdentity looks up an active event by (title, start
	// timestamp). Returns nil, nil when no such event exists.
	FindEventByIdentity(ctx context.Context, title string, startAt time.Time) (*event.PersistedEvent, error)

	InsertEvent(ctx context.Context, ev *event.PersistedEvent) error

	// RefreshEvent updates only the fields a re-collection may touch:
	// description, origin URL and the last-synced timestamp.
	RefreshEvent(ctx context.Context, id int64, description, originalURL string, syncedAt time.Time) error

	CountEvents(ctx context.Context) (int64, error)
}

// RunLogStore appends and reads collection run logs
type RunLogStore interface {
	InsertRunLog(ctx context.Context, log *event.CollectionRunLog) error
	ListRunLogs(ctx context.Context, limit int) ([]*event.CollectionRunLog, error)
}

// Store is the full storage surface consumed by the worker
type Store interface {
	DistrictStore
	SourceStore
	EventStore
	RunLogStore
}
