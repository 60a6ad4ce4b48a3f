package connector

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dongmoa/eventworker/helpers"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/internal/extract"
	"dongmoa/eventworker/internal/normalize"
	"dongmoa/eventworker/logger"
	cerrors "dongmoa/eventworker/pkg/errors"
	"dongmoa/eventworker/services/cache"
)

const (
	// Hard ceiling on pagination regardless of configuration
	maxPaginationPages = 50

	pageToken      = "{page}"
	yearMonthToken = "{yyyymm}"

	defaultCalendarMonths = 2

	// Politeness delays; fixed by design, not per-call configurable
	defaultPageDelay   = 1 * time.Second
	defaultDetailDelay = 500 * time.Millisecond

	rateLimitBlock = 10 * time.Minute
)

// Default labels anchoring date/time extraction in detail-page prose
var (
	defaultDateLabels = []string{"일시", "날짜", "기간"}
	defaultTimeLabels = []string{"시간"}
	locationLabels    = []string{"장소"}
)

// PageConnector collects events by scraping listing pages, optionally
// rendering script-driven pages through ChromeDB and following detail
// pages for richer fields.
type PageConnector struct {
	chromeAddr string
	cacheSvc   cache.CacheService

	fetch  func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)
	render func(ctx context.Context, chromeAddr, url, waitFor string, timeout time.Duration) (io.Reader, error)

	// Overridable in tests; production uses the politeness defaults
	pageDelay   time.Duration
	detailDelay time.Duration
}

// NewPageConnector creates a page connector. chromeAddr may be empty when
// no dynamic sources are configured; cacheSvc may be nil to disable
// rate-limit blocking.
func NewPageConnector(chromeAddr string, cacheSvc cache.CacheService) *PageConnector {
	return &PageConnector{
		chromeAddr:  chromeAddr,
		cacheSvc:    cacheSvc,
		fetch:       helpers.FetchPage,
		render:      renderWithChromeDB,
		pageDelay:   defaultPageDelay,
		detailDelay: defaultDetailDelay,
	}
}

// Collect scrapes all pages of one source. Candidates whose date text
// could not be resolved carry a zero StartAt; the collector applies the
// missing-date policy.
func (c *PageConnector) Collect(ctx context.Context, src *event.SourceDescriptor) ([]event.RawEvent, error) {
	cfg, err := src.DecodePageConfig()
	if err != nil {
		return nil, cerrors.NewConfiguration(src.Name, "invalid page config", err)
	}

	log := logger.ForSource(src.Name)
	urls := buildPageURLs(src.URL, cfg, time.Now())

	var candidates []event.RawEvent
	for i, pageURL := range urls {
		if i > 0 {
			// Politeness pause between successive pages of one source
			select {
			case <-ctx.Done():
				return candidates, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		pageCandidates, err := c.collectPage(ctx, src, cfg, pageURL)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			// Later pages are best-effort; keep what we already have
			log.Warn().Err(err).Str("url", pageURL).Msg("Failed to collect subsequent page")
			break
		}
		candidates = append(candidates, pageCandidates...)
	}

	log.Info().Int("pages", len(urls)).Int("candidates", len(candidates)).Msg("Page collection completed")
	return candidates, nil
}

// buildPageURLs generates the URL set for one source: the configured URL,
// a paginated expansion, or a calendar month expansion.
func buildPageURLs(base string, cfg event.PageConfig, now time.Time) []string {
	if cfg.CalendarMode {
		months := cfg.CalendarMonths
		if months <= 0 {
			months = defaultCalendarMonths
		}
		urls := make([]string, 0, months)
		for offset := 0; offset < months; offset++ {
			ym := now.AddDate(0, offset, 0).Format("200601")
			urls = append(urls, strings.ReplaceAll(base, yearMonthToken, ym))
		}
		return urls
	}

	urls := []string{base}
	if cfg.PaginationEnabled && cfg.PaginationURLPat != "" {
		pages := cfg.PaginationMaxPages
		if pages > maxPaginationPages {
			pages = maxPaginationPages
		}
		for page := 2; page <= pages+1; page++ {
			urls = append(urls, strings.ReplaceAll(cfg.PaginationURLPat, pageToken, strconv.Itoa(page)))
		}
	}
	return urls
}

func (c *PageConnector) collectPage(ctx context.Context, src *event.SourceDescriptor, cfg event.PageConfig, pageURL string) ([]event.RawEvent, error) {
	body, err := c.fetchPage(ctx, src.Name, cfg, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, cerrors.NewParsing(src.Name, "failed to parse HTML", err)
	}

	items, usedSelector := extract.FindItems(doc, cfg.List())
	if items.Length() == 0 {
		logger.ForSource(src.Name).Warn().Str("selector", cfg.List()).Msg("No items matched list selector")
		return nil, nil
	}
	logger.ForSource(src.Name).Debug().
		Str("selector", usedSelector).
		Int("items", items.Length()).
		Msg("Found list items")

	extractCfg := extract.Config{
		Title:       cfg.TitleSelector,
		Date:        cfg.DateSelector,
		Description: cfg.DescriptionSelector,
		Link:        cfg.LinkSelector,
	}

	var candidates []event.RawEvent
	items.Each(func(_ int, s *goquery.Selection) {
		fields := extract.FromSelection(s, extractCfg)
		if !extract.MeaningfulTitle(fields.Title) {
			return
		}

		raw := event.RawEvent{
			Title:       fields.Title,
			Description: fields.Description,
			Location:    fields.Location,
			AgeMin:      normalize.DefaultAgeMin,
			AgeMax:      normalize.DefaultAgeMax,
			IsFree:      true,
			Category:    normalize.MapCategory(fields.Title),
			DistrictID:  src.DistrictID,
			OriginalURL: pageURL,
		}

		if start, end, ok := normalize.ParseDateRange(fields.DateText); ok {
			raw.StartAt = start
			raw.EndAt = end
		}

		if fields.Link != "" {
			raw.OriginalURL = helpers.ResolveLink(pageURL, fields.Link)
		}

		if cfg.CrawlDetailPage && raw.OriginalURL != pageURL {
			c.followDetail(ctx, src, cfg, &raw)
		}

		if age, found := normalize.ParseAgeRange(raw.Title + " " + raw.Description); found {
			raw.AgeMin = age.Min
			raw.AgeMax = age.Max
		}

		candidates = append(candidates, raw)
	})

	return candidates, nil
}

// fetchPage dispatches to the static or rendered fetch path, honoring the
// per-host rate-limit block held in the cache service.
func (c *PageConnector) fetchPage(ctx context.Context, sourceName string, cfg event.PageConfig, pageURL string) (io.Reader, error) {
	blockKey := rateLimitKey(pageURL)
	if c.cacheSvc != nil && blockKey != "" {
		if _, err := c.cacheSvc.Get(blockKey); err == nil {
			return nil, cerrors.NewNetwork(sourceName, fmt.Sprintf("%s: blocked until rate limit expires", blockKey), nil)
		}
	}

	var body io.Reader
	var err error
	if cfg.Method == event.FetchDynamic && c.chromeAddr != "" {
		body, err = c.render(ctx, c.chromeAddr, pageURL, cfg.WaitForSelector, cfg.Timeout())
	} else {
		body, err = c.fetch(ctx, pageURL, cfg.Timeout())
	}
	if err != nil {
		if c.cacheSvc != nil && blockKey != "" && strings.Contains(err.Error(), "rate limited") {
			c.cacheSvc.Set(blockKey, []byte(strconv.Itoa(int(rateLimitBlock.Seconds()))), rateLimitBlock)
		}
		return nil, cerrors.NewNetwork(sourceName, "page fetch failed", err)
	}
	return body, nil
}

func rateLimitKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return "rate_limited:" + u.Host
}

// followDetail fetches the linked detail page and overrides list-derived
// values with the richer detail fields. Failures are non-fatal; the
// list-page values stand.
func (c *PageConnector) followDetail(ctx context.Context, src *event.SourceDescriptor, cfg event.PageConfig, raw *event.RawEvent) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.detailDelay):
	}

	body, err := c.fetchPage(ctx, src.Name, cfg, raw.OriginalURL)
	if err != nil {
		logger.ForSource(src.Name).Debug().Err(err).Str("url", raw.OriginalURL).Msg("Failed to fetch detail page")
		return
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return
	}

	sel := cfg.DetailSelectors
	if title := textOf(doc, sel.Title); extract.MeaningfulTitle(title) {
		raw.Title = title
		raw.Category = normalize.MapCategory(title)
	}
	if content := textOf(doc, sel.Content); content != "" {
		raw.Description = content
	}
	if dept := textOf(doc, sel.Department); dept != "" {
		raw.Organizer = dept
	}
	if contact := textOf(doc, sel.Contact); contact != "" {
		raw.Contact = contact
	}

	// Labeled prose on the detail page can resolve or refine the date
	prose := doc.Text()
	dateLabels := cfg.DetailDateLabels
	if len(dateLabels) == 0 {
		dateLabels = defaultDateLabels
	}
	if labeled := labeledValue(prose, dateLabels); labeled != "" {
		if start, end, ok := normalize.ParseDateRange(labeled); ok {
			raw.StartAt = start
			raw.EndAt = end
		}
	}

	timeLabels := cfg.DetailTimeLabels
	if len(timeLabels) == 0 {
		timeLabels = defaultTimeLabels
	}
	timeText := labeledValue(prose, timeLabels)
	if timeText == "" {
		timeText = raw.Description
	}
	if start, end := normalize.ParseTimeRange(timeText); start != "" {
		raw.StartTime = start
		raw.EndTime = end
	}

	if raw.Location == "" {
		if place := labeledValue(prose, locationLabels); place != "" {
			raw.Location = place
		}
	}
}

func textOf(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// labeledValue finds "label: value" occurrences in free prose and returns
// the first value up to the end of line.
func labeledValue(prose string, labels []string) string {
	for _, label := range labels {
		re, err := regexp.Compile(regexp.QuoteMeta(label) + `\s*[:：]?\s*([^\n\r]+)`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(prose); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
