package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dongmoa/eventworker/internal/collector"
	"dongmoa/eventworker/internal/connector"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/internal/merger"
	"dongmoa/eventworker/services/store"
)

// capturePublisher records published messages per key
type capturePublisher struct {
	messages map[string][][]byte
}

func (p *capturePublisher) Publish(key string, message []byte) error {
	if p.messages == nil {
		p.messages = make(map[string][][]byte)
	}
	p.messages[key] = append(p.messages[key], message)
	return nil
}

func (p *capturePublisher) TrimStream() error { return nil }
func (p *capturePublisher) Close() error      { return nil }

const apiPayload = `{
	"culturalEventInfo": {
		"RESULT": {"CODE": "INFO-000", "MESSAGE": "ok"},
		"row": [
			{"TITLE": "서초 음악회", "GUNAME": "서초구", "STRTDATE": "2025-05-01"},
			{"TITLE": "구민 걷기대회", "GUNAME": "서초구", "STRTDATE": "2025-05-02"}
		]
	}
}`

const pageHTML = `<html><body><table><tbody>
	<tr><td><a href="/view/1">관내 사진 전시회</a></td><td class="date">2025-05-03</td></tr>
</tbody></table></body></html>`

func newTestRunner(t *testing.T) (*Runner, *store.MemoryStore, *capturePublisher, func()) {
	t.Helper()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(apiPayload))
	}))
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageHTML))
	}))
	brokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	s := store.NewMemoryStore()
	ctx := context.Background()

	district := &event.District{Name: "서초구", NameEn: "Seocho-gu", Code: "seocho", IsActive: true}
	require.NoError(t, s.CreateDistrict(ctx, district))

	sources := []*event.SourceDescriptor{
		{Name: "open-data", Kind: event.SourceKindAPI, URL: apiSrv.URL, DistrictID: district.ID, IsActive: true},
		{Name: "broken-board", Kind: event.SourceKindPage, URL: brokenSrv.URL, DistrictID: district.ID, IsActive: true,
			Config: `{"listSelector": "table tbody tr"}`},
		{Name: "district-board", Kind: event.SourceKindPage, URL: pageSrv.URL, DistrictID: district.ID, IsActive: true,
			Config: `{"listSelector": "table tbody tr", "titleSelector": "a", "dateSelector": "td.date"}`},
	}
	for _, src := range sources {
		require.NoError(t, s.CreateSource(ctx, src))
	}

	col := collector.New(
		connector.NewAPIConnector("http://unused.example.com", "key"),
		connector.NewPageConnector("", nil),
	)
	pub := &capturePublisher{}
	r := New(s, col, merger.New(s), pub)

	cleanup := func() {
		apiSrv.Close()
		pageSrv.Close()
		brokenSrv.Close()
	}
	return r, s, pub, cleanup
}

func TestRunAllSweepsEverySource(t *testing.T) {
	r, s, pub, cleanup := newTestRunner(t)
	defer cleanup()

	summaries, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	byName := make(map[string]SourceSummary, len(summaries))
	for _, sum := range summaries {
		byName[sum.Source] = sum
	}

	api := byName["open-data"]
	assert.Equal(t, event.RunStatusSuccess, api.Status)
	assert.Equal(t, 2, api.Collected)
	assert.Equal(t, 2, api.Added)

	broken := byName["broken-board"]
	assert.Equal(t, event.RunStatusFailed, broken.Status)
	assert.Zero(t, broken.Collected)
	assert.NotEmpty(t, broken.Error)

	page := byName["district-board"]
	assert.Equal(t, event.RunStatusSuccess, page.Status)
	assert.Equal(t, 1, page.Collected)

	// One run log per source, failure included
	logs := s.RunLogs()
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.NotEmpty(t, l.ID)
		assert.False(t, l.CompletedAt.Before(l.StartedAt))
	}

	// Every source got its last-collected timestamp, failure included
	srcs, err := s.ListSources(context.Background(), 0)
	require.NoError(t, err)
	for _, src := range srcs {
		assert.NotNil(t, src.LastCollectedAt, src.Name)
	}

	// Added events were published keyed by source name
	assert.Len(t, pub.messages["open-data"], 2)
	assert.Len(t, pub.messages["district-board"], 1)
	assert.Empty(t, pub.messages["broken-board"])

	var published event.PersistedEvent
	require.NoError(t, json.Unmarshal(pub.messages["district-board"][0], &published))
	assert.Equal(t, "관내 사진 전시회", published.Title)
}

func TestRunAllSecondSweepUpdatesInsteadOfAdding(t *testing.T) {
	r, s, pub, cleanup := newTestRunner(t)
	defer cleanup()

	_, err := r.RunAll(context.Background())
	require.NoError(t, err)
	firstCount := len(s.Events())

	summaries, err := r.RunAll(context.Background())
	require.NoError(t, err)

	for _, sum := range summaries {
		if sum.Status == event.RunStatusSuccess {
			assert.Zero(t, sum.Added, sum.Source)
			assert.Equal(t, sum.Collected, sum.Updated, sum.Source)
		}
	}
	assert.Len(t, s.Events(), firstCount)
	// Refreshes are not re-published
	assert.Len(t, pub.messages["open-data"], 2)
}

func TestTestSourceIsDry(t *testing.T) {
	r, s, _, cleanup := newTestRunner(t)
	defer cleanup()

	srcs, err := s.ListSources(context.Background(), 0)
	require.NoError(t, err)

	var apiSrc *event.SourceDescriptor
	for _, src := range srcs {
		if src.Name == "open-data" {
			apiSrc = src
		}
	}
	require.NotNil(t, apiSrc)

	candidates, errs := r.TestSource(context.Background(), apiSrc)
	assert.Empty(t, errs)
	assert.Len(t, candidates, 2)

	// Nothing persisted, logged or touched
	assert.Empty(t, s.Events())
	assert.Empty(t, s.RunLogs())
	assert.Nil(t, apiSrc.LastCollectedAt)
}

func TestRunSourceFailureRecordsError(t *testing.T) {
	r, s, _, cleanup := newTestRunner(t)
	defer cleanup()

	srcs, err := s.ListSources(context.Background(), 0)
	require.NoError(t, err)
	var broken *event.SourceDescriptor
	for _, src := range srcs {
		if src.Name == "broken-board" {
			broken = src
		}
	}
	require.NotNil(t, broken)

	summary := r.RunSource(context.Background(), broken)
	assert.Equal(t, event.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "page fetch failed")

	logs := s.RunLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, event.RunStatusFailed, logs[0].Status)
	assert.Equal(t, summary.Error, logs[0].ErrorMessage)
}
