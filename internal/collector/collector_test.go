package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dongmoa/eventworker/internal/connector"
	"dongmoa/eventworker/internal/event"
)

func newTestCollector() *Collector {
	return New(
		connector.NewAPIConnector("http://openapi.example.com:8088", "testkey"),
		connector.NewPageConnector("", nil),
	)
}

func TestCollectDispatchesAPISource(t *testing.T) {
	payload := `{
		"culturalEventInfo": {
			"RESULT": {"CODE": "INFO-000", "MESSAGE": "ok"},
			"row": [
				{"TITLE": "시민 마라톤 대회", "GUNAME": "서초구", "STRTDATE": "2025-09-01"},
				{"TITLE": "날짜 없는 행사"}
			]
		}
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := &event.SourceDescriptor{
		ID:   1,
		Name: "open-data",
		Kind: event.SourceKindAPI,
		URL:  srv.URL,
	}

	result := newTestCollector().Collect(context.Background(), src)
	assert.Empty(t, result.Errors)
	// The undated row is dropped, never defaulted
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "시민 마라톤 대회", result.Candidates[0].Title)
}

func TestCollectAppliesMissingDateFallback(t *testing.T) {
	html := `<html><body><table><tbody>
		<tr><td><a href="/a">등록 안내 공고</a></td><td class="date">미정</td></tr>
		<tr><td><a href="/b">가을 축제</a></td><td class="date">2025-10-01</td></tr>
	</tbody></table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	src := &event.SourceDescriptor{
		ID:     2,
		Name:   "district-board",
		Kind:   event.SourceKindPage,
		URL:    srv.URL,
		Config: `{"listSelector": "table tbody tr", "titleSelector": "a", "dateSelector": "td.date"}`,
	}

	before := time.Now()
	result := newTestCollector().Collect(context.Background(), src)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Candidates, 2)

	// The undated page item gets the current time, truncated to the minute
	first := result.Candidates[0]
	assert.False(t, first.StartAt.IsZero())
	assert.True(t, !first.StartAt.After(time.Now()))
	assert.True(t, first.StartAt.After(before.Add(-time.Minute-time.Second)))
	assert.Equal(t, 0, first.StartAt.Second())

	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local), result.Candidates[1].StartAt)
}

func TestCollectContainsConnectorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := &event.SourceDescriptor{
		ID:   3,
		Name: "broken",
		Kind: event.SourceKindPage,
		URL:  srv.URL,
	}

	result := newTestCollector().Collect(context.Background(), src)
	assert.Empty(t, result.Candidates)
	require.Len(t, result.Errors, 1)
}

func TestCollectRejectsUnknownKind(t *testing.T) {
	src := &event.SourceDescriptor{ID: 4, Name: "odd", Kind: "RSS", URL: "https://example.com"}
	result := newTestCollector().Collect(context.Background(), src)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "unknown source kind")
}
