package analyzer

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(html string, err error) *Analyzer {
	return &Analyzer{
		fetch: func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error) {
			if err != nil {
				return nil, err
			}
			return strings.NewReader(html), nil
		},
	}
}

func TestAnalyzePicksBestSelector(t *testing.T) {
	html := `<html><head><title>서초구 행사안내</title></head><body>
		<table><tbody>
			<tr><td>1</td><td>봄꽃 축제</td><td>2025-04-01</td></tr>
			<tr><td>2</td><td>클래식 음악회</td><td>2025-04-05</td></tr>
			<tr><td>3</td><td>어린이 체육대회</td><td>2025-04-10</td></tr>
			<tr><td>4</td><td>주민 교육 강좌</td><td>2025-04-15</td></tr>
		</tbody></table>
	</body></html>`

	a := newTestAnalyzer(html, nil)
	analysis, err := a.Analyze(context.Background(), "http://example.com/events")
	require.NoError(t, err)

	assert.Equal(t, "table tbody tr", analysis.SuggestedConfig.ListSelector)
	assert.Equal(t, 4, analysis.MatchCount)
	assert.Equal(t, "서초구 행사안내", analysis.Title)
	assert.Len(t, analysis.Samples, 4)
	assert.Contains(t, analysis.Samples[0].Text, "봄꽃 축제")
}

func TestAnalyzeRequiresMinimumMatches(t *testing.T) {
	// Only two rows: below the threshold, so no selector qualifies and
	// the default is returned with zero matches.
	html := `<html><body><table><tbody>
		<tr><td>하나</td></tr>
		<tr><td>둘</td></tr>
	</tbody></table></body></html>`

	a := newTestAnalyzer(html, nil)
	analysis, err := a.Analyze(context.Background(), "http://example.com/short")
	require.NoError(t, err)

	assert.Equal(t, 0, analysis.MatchCount)
	assert.Equal(t, "table tbody tr", analysis.SuggestedConfig.ListSelector)
	// Samples still come from the default selector as an editing aid
	assert.Len(t, analysis.Samples, 2)
}

func TestAnalyzeLimitsSamples(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><ul class=\"list\">")
	for i := 0; i < 8; i++ {
		sb.WriteString("<li>행사 항목 ")
		sb.WriteString(strings.Repeat("가", 300))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul></body></html>")

	a := newTestAnalyzer(sb.String(), nil)
	analysis, err := a.Analyze(context.Background(), "http://example.com/long")
	require.NoError(t, err)

	assert.Len(t, analysis.Samples, 5)
	for _, s := range analysis.Samples {
		assert.LessOrEqual(t, len([]rune(s.Text)), 200)
	}
}

func TestAnalyzeFetchError(t *testing.T) {
	a := newTestAnalyzer("", io.ErrUnexpectedEOF)
	_, err := a.Analyze(context.Background(), "http://example.com/down")
	assert.Error(t, err)
}
