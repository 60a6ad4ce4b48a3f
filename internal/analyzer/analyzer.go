// Package analyzer inspects an unknown listing page and suggests a
// scraping configuration. Output is advisory: a human confirms it before
// it becomes a SourceDescriptor.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dongmoa/eventworker/helpers"
	"dongmoa/eventworker/internal/extract"
	"dongmoa/eventworker/logger"
)

const (
	// A selector must match at least this many elements to be a
	// plausible listing container
	minListMatches = 3

	maxSamples      = 5
	sampleMaxLength = 200
)

// SuggestedConfig is the selector set offered for a new page source
type SuggestedConfig struct {
	ListSelector  string `json:"listSelector"`
	TitleSelector string `json:"titleSelector"`
	DateSelector  string `json:"dateSelector"`
}

// Sample is a snippet of one matched item
type Sample struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Analysis is the result of probing one page
type Analysis struct {
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	HTMLLength      int             `json:"htmlLength"`
	MatchCount      int             `json:"matchCount"`
	SuggestedConfig SuggestedConfig `json:"suggestedConfig"`
	Samples         []Sample        `json:"samples"`
}

// Analyzer probes pages for likely listing structures
type Analyzer struct {
	fetch func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)
}

// New creates an analyzer
func New() *Analyzer {
	return &Analyzer{fetch: helpers.FetchPage}
}

// Analyze fetches the page and runs the fixed battery of candidate list
// selectors, picking the one with the most matches above the threshold.
func (a *Analyzer) Analyze(ctx context.Context, url string) (*Analysis, error) {
	log := logger.ForAnalyzer()
	log.Info().Str("url", url).Msg("Starting site analysis")

	body, err := a.fetch(ctx, url, helpers.DefaultPageTimeout)
	if err != nil {
		return nil, fmt.Errorf("analysis fetch failed: %w", err)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("analysis read failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("analysis parse failed: %w", err)
	}

	best := ""
	bestCount := 0
	for _, sel := range extract.FallbackListSelectors {
		count := doc.Find(sel).Length()
		if count > bestCount && count >= minListMatches {
			best = sel
			bestCount = count
		}
	}
	if best == "" {
		// Nothing plausible; still return the default so the admin has
		// a starting point to edit.
		best = extract.FallbackListSelectors[0]
	}

	analysis := &Analysis{
		URL:        url,
		Title:      strings.TrimSpace(doc.Find("title").Text()),
		HTMLLength: len(raw),
		MatchCount: bestCount,
		SuggestedConfig: SuggestedConfig{
			ListSelector:  best,
			TitleSelector: "a, .title, td:nth-child(2)",
			DateSelector:  ".date, td:nth-child(3)",
		},
	}

	doc.Find(best).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxSamples {
			return false
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if runes := []rune(text); len(runes) > sampleMaxLength {
			text = string(runes[:sampleMaxLength])
		}
		analysis.Samples = append(analysis.Samples, Sample{Index: i, Text: text})
		return true
	})

	log.Info().Str("selector", best).Int("matches", bestCount).Msg("Site analysis completed")
	return analysis, nil
}
