package event

import (
	"fmt"
	"net/url"
	"time"
)

// SourceKind discriminates how a data source is collected
type SourceKind string

const (
	// SourceKindAPI marks sources collected through a JSON API
	SourceKindAPI SourceKind = "API"
	// SourceKindPage marks sources collected by scraping a web page
	SourceKindPage SourceKind = "PAGE"
)

// Valid reports whether the kind is one of the known variants
func (k SourceKind) Valid() bool {
	return k == SourceKindAPI || k == SourceKindPage
}

// District is a region whose events are listed. Sources belong to exactly
// one district and are only swept while the district is active.
type District struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	NameEn   string `json:"nameEn"`
	Code     string `json:"code"`
	IsActive bool   `json:"isActive"`
}

// SourceDescriptor is the configuration for one external origin.
// Kind is immutable after creation; changing extraction strategy requires
// a new descriptor.
type SourceDescriptor struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Kind            SourceKind `json:"sourceType"`
	URL             string     `json:"url"`
	DistrictID      int64      `json:"districtId"`
	IsActive        bool       `json:"isActive"`
	LastCollectedAt *time.Time `json:"lastCollectedAt,omitempty"`
	// Config carries the kind-specific configuration as serialized JSON.
	Config    string    `json:"config,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	District *District `json:"district,omitempty"`
}

// Validate checks the descriptor invariants
func (s *SourceDescriptor) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name must not be empty")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("unknown source kind: %q", s.Kind)
	}
	u, err := url.Parse(s.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("source url must be an absolute URL: %q", s.URL)
	}
	return nil
}

// RawEvent is a candidate event extracted from one source during one run.
// It only lives in memory; the merger decides whether it becomes a new
// persisted event or refreshes an existing one.
type RawEvent struct {
	Title           string
	Description     string
	StartAt         time.Time
	EndAt           *time.Time
	StartTime       string
	EndTime         string
	Location        string
	Address         string
	AgeMin          int
	AgeMax          int
	TargetGroups    []string
	IsFree          bool
	Fee             string
	OriginalURL     string
	RegistrationURL string
	ImageURL        string
	Category        string
	Organizer       string
	Contact         string
	DistrictID      int64
}

// PersistedEvent is the durable record. Identity is (Title, StartAt);
// two events sharing both are the same logical event regardless of source.
type PersistedEvent struct {
	ID int64 `json:"id"`
	RawEvent
	DataSourceID int64      `json:"dataSourceId"`
	ViewCount    int64      `json:"viewCount"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// RunStatus is the outcome of one collection attempt
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// CollectionRunLog is the audit record of one collector invocation
// against one source. Written exactly once per (source, run), never
// mutated afterwards.
type CollectionRunLog struct {
	ID           string    `json:"id"`
	DataSourceID int64     `json:"dataSourceId"`
	Status       RunStatus `json:"status"`
	Collected    int       `json:"eventsCollected"`
	Added        int       `json:"eventsAdded"`
	Updated      int       `json:"eventsUpdated"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt"`
}
