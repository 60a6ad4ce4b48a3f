package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// FetchMethod selects how a page source is fetched
type FetchMethod string

const (
	// FetchStatic fetches the page with a plain HTTP GET
	FetchStatic FetchMethod = "static"
	// FetchDynamic renders the page in a headless browser first
	FetchDynamic FetchMethod = "dynamic"
)

// APIConfig is the kind-specific configuration for API sources
type APIConfig struct {
	APIKey         string `json:"apiKey,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Service        string `json:"service,omitempty"`
	StartIndex     int    `json:"startIndex,omitempty"`
	EndIndex       int    `json:"endIndex,omitempty"`
	DistrictFilter string `json:"districtFilter,omitempty"`
	TimeoutMS      int    `json:"timeout,omitempty"`
}

// Timeout returns the per-call timeout, or zero when unset
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// DetailSelectors locate fields on a followed detail page
type DetailSelectors struct {
	Title      string `json:"title,omitempty"`
	Content    string `json:"content,omitempty"`
	Department string `json:"department,omitempty"`
	Contact    string `json:"contact,omitempty"`
}

// PageConfig is the kind-specific configuration for page sources
type PageConfig struct {
	Method              FetchMethod     `json:"method,omitempty"`
	ListSelector        string          `json:"listSelector,omitempty"`
	Selector            string          `json:"selector,omitempty"` // legacy alias of listSelector
	TitleSelector       string          `json:"titleSelector,omitempty"`
	DateSelector        string          `json:"dateSelector,omitempty"`
	DescriptionSelector string          `json:"descriptionSelector,omitempty"`
	LinkSelector        string          `json:"linkSelector,omitempty"`
	WaitForSelector     string          `json:"waitForSelector,omitempty"`
	TimeoutMS           int             `json:"timeout,omitempty"`
	CrawlDetailPage     bool            `json:"crawlDetailPage,omitempty"`
	DetailSelectors     DetailSelectors `json:"detailSelectors,omitempty"`
	DetailDateLabels    []string        `json:"detailDateLabels,omitempty"`
	DetailTimeLabels    []string        `json:"detailTimeLabels,omitempty"`
	PaginationEnabled   bool            `json:"paginationEnabled,omitempty"`
	PaginationURLPat    string          `json:"paginationUrlPattern,omitempty"`
	PaginationMaxPages  int             `json:"paginationMaxPages,omitempty"`
	CalendarMode        bool            `json:"calendarMode,omitempty"`
	CalendarMonths      int             `json:"calendarMonths,omitempty"`
}

// List returns the configured list selector, honoring the legacy alias
func (c PageConfig) List() string {
	if c.ListSelector != "" {
		return c.ListSelector
	}
	return c.Selector
}

// Timeout returns the per-call timeout, or zero when unset
func (c PageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// DecodeAPIConfig reads the descriptor's opaque config as an APIConfig.
// Only valid for API sources.
func (s *SourceDescriptor) DecodeAPIConfig() (APIConfig, error) {
	var cfg APIConfig
	if s.Kind != SourceKindAPI {
		return cfg, fmt.Errorf("source %q is not an API source", s.Name)
	}
	if s.Config == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(s.Config), &cfg); err != nil {
		return cfg, fmt.Errorf("decode api config for %q: %w", s.Name, err)
	}
	return cfg, nil
}

// DecodePageConfig reads the descriptor's opaque config as a PageConfig.
// Only valid for page sources.
func (s *SourceDescriptor) DecodePageConfig() (PageConfig, error) {
	var cfg PageConfig
	if s.Kind != SourceKindPage {
		return cfg, fmt.Errorf("source %q is not a page source", s.Name)
	}
	if s.Config == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(s.Config), &cfg); err != nil {
		return cfg, fmt.Errorf("decode page config for %q: %w", s.Name, err)
	}
	if cfg.Method == "" {
		cfg.Method = FetchStatic
	}
	return cfg, nil
}
