// Package normalize converts the heterogeneous text found on municipal
// listing pages into canonical values: calendar dates, times of day,
// age ranges and category tags. All functions are pure and never fail;
// absence is a valid result.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Default age range applied when no age keyword matches
const (
	DefaultAgeMin = 0
	DefaultAgeMax = 999
)

// DefaultCategory is the tag applied when no category keyword matches
const DefaultCategory = "문화"

var (
	// Everything that is not a digit or a date separator gets stripped
	// before structural matching
	nonDateChars = regexp.MustCompile(`[^0-9.\-/]`)

	datePattern        = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	compactDatePattern = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)

	timeRangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[~∼-]\s*(\d{1,2}:\d{2})`)
	timePattern      = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// Fallback layouts for text the structural pattern cannot handle
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate resolves free-form date text to a local calendar date.
// Returns false when no date can be found.
func ParseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	cleaned := nonDateChars.ReplaceAllString(text, "")

	if m := datePattern.FindStringSubmatch(cleaned); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if m := compactDatePattern.FindStringSubmatch(cleaned); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseDateRange resolves text like "2024-03-01 ~ 2024-03-15" into a start
// and an optional end date. A single date yields only a start.
func ParseDateRange(text string) (time.Time, *time.Time, bool) {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '~' || r == '∼'
	})
	if len(parts) >= 2 {
		start, okStart := ParseDate(parts[0])
		end, okEnd := ParseDate(parts[1])
		if okStart && okEnd {
			return start, &end, true
		}
		if okStart {
			return start, nil, true
		}
	}
	start, ok := ParseDate(text)
	return start, nil, ok
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local), true
}

// ParseTimeRange searches free-text prose for an HH:MM~HH:MM pair,
// falling back to a single HH:MM as the start time only.
func ParseTimeRange(text string) (string, string) {
	if m := timeRangePattern.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	if m := timePattern.FindString(text); m != "" {
		return m, ""
	}
	return "", ""
}

// AgeRange is an inclusive [Min, Max] target-age band
type AgeRange struct {
	Min int
	Max int
}

type ageRule struct {
	keywords []string
	age      AgeRange
}

// Ordered keyword table; the first matching keyword wins
var ageRules = []ageRule{
	{[]string{"영유아", "영아", "유아"}, AgeRange{0, 7}},
	{[]string{"어린이", "아동", "초등"}, AgeRange{8, 13}},
	{[]string{"청소년", "중학생", "고등학생", "중고등"}, AgeRange{14, 19}},
	{[]string{"청년"}, AgeRange{20, 39}},
	{[]string{"성인", "일반인"}, AgeRange{20, 64}},
	{[]string{"어르신", "노인", "시니어"}, AgeRange{65, 999}},
}

// ParseAgeRange maps age-group text to a canonical range. Returns false
// when no keyword matches; the caller defaults to [0, 999].
func ParseAgeRange(text string) (AgeRange, bool) {
	for _, rule := range ageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.age, true
			}
		}
	}
	return AgeRange{}, false
}

type categoryRule struct {
	keywords []string
	tag      string
}

// Ordered keyword table over the title text; the first matching rule wins.
// Tags mirror the fixed category set served to the browsing UI.
var categoryRules = []categoryRule{
	{[]string{"축제", "페스티벌"}, "축제"},
	{[]string{"체육", "스포츠", "운동", "마라톤", "걷기"}, "체육"},
	{[]string{"교육", "강좌", "강습", "특강", "아카데미", "교실"}, "교육"},
	{[]string{"복지", "돌봄", "바우처"}, "복지"},
	{[]string{"모집", "신청", "접수", "공고", "설명회"}, "행정"},
}

// MapCategory maps an event title to a category tag
func MapCategory(title string) string {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.tag
			}
		}
	}
	return DefaultCategory
}
