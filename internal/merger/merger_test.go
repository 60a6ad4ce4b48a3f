package merger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/services/store"
)

func candidate(title string, start time.Time) event.RawEvent {
	return event.RawEvent{
		Title:       title,
		Description: "첫 수집 설명",
		StartAt:     start,
		Location:    "구민회관",
		Category:    "문화",
		OriginalURL: "https://example.com/1",
		IsFree:      true,
	}
}

func TestMergeInsertsNewEvents(t *testing.T) {
	s := store.NewMemoryStore()
	m := New(s)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)

	result := m.Merge(context.Background(), []event.RawEvent{
		candidate("행사 A", start),
		candidate("행사 B", start),
	}, 7)

	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.AddedEvents, 2)
	assert.Equal(t, int64(7), result.AddedEvents[0].DataSourceID)
	assert.Len(t, s.Events(), 2)
}

func TestMergeIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	m := New(s)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)
	batch := []event.RawEvent{candidate("행사 A", start)}

	first := m.Merge(context.Background(), batch, 7)
	second := m.Merge(context.Background(), batch, 7)

	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Updated)
	assert.Len(t, s.Events(), 1)
}

func TestMergeIdentityIsTitleAndStart(t *testing.T) {
	s := store.NewMemoryStore()
	m := New(s)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)

	m.Merge(context.Background(), []event.RawEvent{candidate("행사 A", start)}, 7)
	// Same title on another day is a different event
	result := m.Merge(context.Background(), []event.RawEvent{
		candidate("행사 A", start.AddDate(0, 0, 1)),
	}, 7)

	assert.Equal(t, 1, result.Added)
	assert.Len(t, s.Events(), 2)
}

func TestMergeRefreshTouchesOnlyVolatileFields(t *testing.T) {
	s := store.NewMemoryStore()
	m := New(s)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)

	m.Merge(context.Background(), []event.RawEvent{candidate("행사 A", start)}, 7)

	changed := candidate("행사 A", start)
	changed.Description = "갱신된 설명"
	changed.OriginalURL = "https://example.com/v2"
	changed.Location = "다른 장소"
	changed.IsFree = false
	result := m.Merge(context.Background(), []event.RawEvent{changed}, 9)

	assert.Equal(t, 1, result.Updated)
	events := s.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "갱신된 설명", ev.Description)
	assert.Equal(t, "https://example.com/v2", ev.OriginalURL)
	require.NotNil(t, ev.LastSyncedAt)
	// First collection wins on everything else
	assert.Equal(t, "구민회관", ev.Location)
	assert.True(t, ev.IsFree)
	assert.Equal(t, int64(7), ev.DataSourceID)
}

func TestMergeFailureIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	s.FailInsertTitles = map[string]bool{"고장난 행사": true}
	m := New(s)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)

	result := m.Merge(context.Background(), []event.RawEvent{
		candidate("행사 A", start),
		candidate("고장난 행사", start),
		candidate("행사 B", start),
	}, 7)

	// The failing candidate never blocks its siblings
	assert.Equal(t, 2, result.Added)
	assert.Len(t, s.Events(), 2)
}
