package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dongmoa/eventworker/internal/event"
)

// MemoryStore is an in-process Store. It backs tests and makes the
// pipeline runnable without a database file.
type MemoryStore struct {
	mu        sync.Mutex
	districts map[int64]*event.District
	sources   map[int64]*event.SourceDescriptor
	events    map[int64]*event.PersistedEvent
	logs      []*event.CollectionRunLog
	nextID    int64

	// FailInsertTitles makes InsertEvent fail for the named titles;
	// used to exercise per-candidate failure isolation.
	FailInsertTitles map[string]bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		districts: make(map[int64]*event.District),
		sources:   make(map[int64]*event.SourceDescriptor),
		events:    make(map[int64]*event.PersistedEvent),
	}
}

func (m *MemoryStore) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) ListDistricts(ctx context.Context) ([]*event.District, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*event.District, 0, len(m.districts))
	for _, d := range m.districts {
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) CreateDistrict(ctx context.Context, d *event.District) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.nextIDLocked()
	m.districts[d.ID] = d
	return nil
}

func (m *MemoryStore) ListSources(ctx context.Context, districtID int64) ([]*event.SourceDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.SourceDescriptor
	for _, src := range m.sources {
		if districtID > 0 && src.DistrictID != districtID {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (m *MemoryStore) ListEnabledSources(ctx context.Context) ([]*event.SourceDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.SourceDescriptor
	for _, src := range m.sources {
		if !src.IsActive {
			continue
		}
		if d, ok := m.districts[src.DistrictID]; ok && !d.IsActive {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (m *MemoryStore) GetSource(ctx context.Context, id int64) (*event.SourceDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[id], nil
}

func (m *MemoryStore) CreateSource(ctx context.Context, src *event.SourceDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src.ID = m.nextIDLocked()
	src.CreatedAt = time.Now()
	if d, ok := m.districts[src.DistrictID]; ok {
		src.District = d
	}
	m.sources[src.ID] = src
	return nil
}

func (m *MemoryStore) UpdateSource(ctx context.Context, src *event.SourceDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sources[src.ID]
	if !ok {
		return fmt.Errorf("source %d not found", src.ID)
	}
	// Kind stays as originally recorded
	src.Kind = existing.Kind
	src.CreatedAt = existing.CreatedAt
	m.sources[src.ID] = src
	return nil
}

func (m *MemoryStore) DeleteSource(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	return nil
}

func (m *MemoryStore) TouchSourceCollected(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src, ok := m.sources[id]; ok {
		src.LastCollectedAt = &at
	}
	return nil
}

func (m *MemoryStore) FindEventByIdentity(ctx context.Context, title string, startAt time.Time) (*event.PersistedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.IsActive && ev.Title == title && ev.StartAt.Equal(startAt) {
			return ev, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) InsertEvent(ctx context.Context, ev *event.PersistedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsertTitles[ev.Title] {
		return fmt.Errorf("simulated insert failure for %q", ev.Title)
	}
	ev.ID = m.nextIDLocked()
	now := time.Now()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	ev.IsActive = true
	m.events[ev.ID] = ev
	return nil
}

func (m *MemoryStore) RefreshEvent(ctx context.Context, id int64, description, originalURL string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return fmt.Errorf("event %d not found", id)
	}
	if description != "" {
		ev.Description = description
	}
	ev.OriginalURL = originalURL
	ev.LastSyncedAt = &syncedAt
	ev.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) CountEvents(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, ev := range m.events {
		if ev.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) InsertRunLog(ctx context.Context, log *event.CollectionRunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MemoryStore) ListRunLogs(ctx context.Context, limit int) ([]*event.CollectionRunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.logs) {
		limit = len(m.logs)
	}
	out := make([]*event.CollectionRunLog, 0, limit)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

// Events returns all active events; test helper
func (m *MemoryStore) Events() []*event.PersistedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.PersistedEvent
	for _, ev := range m.events {
		if ev.IsActive {
			out = append(out, ev)
		}
	}
	return out
}

// RunLogs returns all recorded run logs in insertion order; test helper
func (m *MemoryStore) RunLogs() []*event.CollectionRunLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*event.CollectionRunLog(nil), m.logs...)
}
