package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dongmoa/eventworker/helpers"
	"dongmoa/eventworker/internal/event"
	"dongmoa/eventworker/internal/normalize"
	"dongmoa/eventworker/logger"
	cerrors "dongmoa/eventworker/pkg/errors"
)

const (
	defaultAPIService    = "culturalEventInfo"
	defaultAPIStartIndex = 1
	defaultAPIEndIndex   = 100
	vendorSuccessCode    = "INFO-000"
)

// APIConnector collects events from the open-data JSON API. The vendor
// wraps results in a service-named object carrying a RESULT status block
// and a row array.
type APIConnector struct {
	host       string
	defaultKey string
	fetch      func(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// NewAPIConnector creates an API connector. The default key is used when
// a source does not carry its own.
func NewAPIConnector(host, defaultKey string) *APIConnector {
	return &APIConnector{
		host:       host,
		defaultKey: defaultKey,
		fetch:      helpers.FetchJSON,
	}
}

// Collect fetches and maps all rows of one API source
func (c *APIConnector) Collect(ctx context.Context, src *event.SourceDescriptor) ([]event.RawEvent, error) {
	cfg, err := src.DecodeAPIConfig()
	if err != nil {
		return nil, cerrors.NewConfiguration(src.Name, "invalid api config", err)
	}

	reqURL := c.buildURL(src, cfg)
	log := logger.ForSource(src.Name)
	log.Debug().Str("url", reqURL).Msg("Starting API collection")

	body, err := c.fetch(ctx, reqURL, cfg.Timeout())
	if err != nil {
		return nil, cerrors.NewNetwork(src.Name, "api fetch failed", err)
	}

	rows, err := decodeVendorPayload(src.Name, cfg.Service, body)
	if err != nil {
		return nil, err
	}

	var candidates []event.RawEvent
	for _, row := range rows {
		if cfg.DistrictFilter != "" && !rowMatchesDistrict(row, cfg.DistrictFilter) {
			continue
		}
		raw, ok := mapRow(row, src)
		if !ok {
			// One malformed row never aborts the batch
			continue
		}
		candidates = append(candidates, raw)
	}

	log.Info().Int("rows", len(rows)).Int("candidates", len(candidates)).Msg("API collection completed")
	return candidates, nil
}

// buildURL either reuses a pre-composed complete URL or composes one from
// the endpoint template, access key, service name and paging indices.
func (c *APIConnector) buildURL(src *event.SourceDescriptor, cfg event.APIConfig) string {
	if cfg.Endpoint == "" {
		return src.URL
	}

	key := cfg.APIKey
	if key == "" {
		key = c.defaultKey
	}
	service := cfg.Service
	if service == "" {
		service = defaultAPIService
	}
	start := cfg.StartIndex
	if start == 0 {
		start = defaultAPIStartIndex
	}
	end := cfg.EndIndex
	if end == 0 {
		end = defaultAPIEndIndex
	}

	host := cfg.Endpoint
	if host == "" {
		host = c.host
	}
	return fmt.Sprintf("%s/%s/json/%s/%d/%d", strings.TrimRight(host, "/"), key, service, start, end)
}

// vendorResult is the embedded status block
type vendorResult struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

// vendorRow is one event record as served by the open-data API
type vendorRow struct {
	Title     string `json:"TITLE"`
	ServiceNm string `json:"SVCNM"`
	CodeName  string `json:"CODENAME"`
	GuName    string `json:"GUNAME"`
	Place     string `json:"PLACE"`
	OrgName   string `json:"ORG_NAME"`
	UseTarget string `json:"USE_TRGT"`
	UseFee    string `json:"USE_FEE"`
	IsFree    string `json:"IS_FREE"`
	OrgLink   string `json:"ORG_LINK"`
	HmpgAddr  string `json:"HMPG_ADDR"`
	MainImg   string `json:"MAIN_IMG"`
	Date      string `json:"DATE"`
	StartDate string `json:"STRTDATE"`
	EndDate   string `json:"END_DATE"`
	Program   string `json:"PROGRAM"`
}

type vendorService struct {
	ListTotalCount int          `json:"list_total_count"`
	Result         vendorResult `json:"RESULT"`
	Row            []vendorRow  `json:"row"`
}

// decodeVendorPayload unwraps the service object and surfaces the vendor's
// embedded error code as a hard failure for this source's run.
func decodeVendorPayload(sourceName, service string, body []byte) ([]vendorRow, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, cerrors.NewParsing(sourceName, "invalid api payload", err)
	}

	// Error responses carry a bare top-level RESULT block
	if raw, ok := envelope["RESULT"]; ok {
		var res vendorResult
		if err := json.Unmarshal(raw, &res); err == nil && res.Code != vendorSuccessCode {
			return nil, cerrors.NewVendor(sourceName, res.Code, res.Message)
		}
	}

	if service == "" {
		service = defaultAPIService
	}
	raw, ok := envelope[service]
	if !ok {
		// Fall back to the single service key present in the payload
		for key, v := range envelope {
			if key != "RESULT" {
				raw = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, cerrors.NewParsing(sourceName, "api payload carries no service object", nil)
	}

	var svc vendorService
	if err := json.Unmarshal(raw, &svc); err != nil {
		return nil, cerrors.NewParsing(sourceName, "invalid service object", err)
	}
	if svc.Result.Code != "" && svc.Result.Code != vendorSuccessCode {
		return nil, cerrors.NewVendor(sourceName, svc.Result.Code, svc.Result.Message)
	}

	return svc.Row, nil
}

func rowMatchesDistrict(row vendorRow, filter string) bool {
	return strings.Contains(row.GuName, filter) || strings.Contains(row.Place, filter)
}

// mapRow converts one vendor row to a candidate. Rows without a
// resolvable start date are dropped entirely.
func mapRow(row vendorRow, src *event.SourceDescriptor) (event.RawEvent, bool) {
	// Per-field fallback chains
	title := strings.TrimSpace(row.Title)
	if title == "" {
		title = strings.TrimSpace(row.ServiceNm)
	}
	if title == "" {
		return event.RawEvent{}, false
	}

	dateText := row.StartDate
	if strings.TrimSpace(dateText) == "" {
		dateText = row.Date
	}
	startAt, endAt, ok := normalize.ParseDateRange(dateText)
	if !ok {
		return event.RawEvent{}, false
	}
	if endAt == nil {
		if end, endOk := normalize.ParseDate(row.EndDate); endOk {
			endAt = &end
		}
	}

	raw := event.RawEvent{
		Title:       title,
		Description: strings.TrimSpace(row.Program),
		StartAt:     startAt,
		EndAt:       endAt,
		Location:    strings.TrimSpace(row.Place),
		AgeMin:      normalize.DefaultAgeMin,
		AgeMax:      normalize.DefaultAgeMax,
		IsFree:      row.IsFree == "무료" || strings.TrimSpace(row.UseFee) == "",
		Fee:         strings.TrimSpace(row.UseFee),
		OriginalURL: firstNonEmpty(row.OrgLink, row.HmpgAddr, src.URL),
		ImageURL:    strings.TrimSpace(row.MainImg),
		Category:    normalize.MapCategory(title),
		Organizer:   strings.TrimSpace(row.OrgName),
		DistrictID:  src.DistrictID,
	}

	if target := strings.TrimSpace(row.UseTarget); target != "" {
		raw.TargetGroups = []string{target}
		if age, found := normalize.ParseAgeRange(target); found {
			raw.AgeMin = age.Min
			raw.AgeMax = age.Max
		}
	}

	return raw, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
