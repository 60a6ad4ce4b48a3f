// Package extract pulls candidate fields out of one structural unit of a
// listing page. It knows nothing about sources or storage; connectors feed
// it selections and decide what to do with the results.
package extract

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"dongmoa/eventworker/logger"
)

// FallbackListSelectors is the fixed, ordered chain tried when the
// configured list selector matches nothing. Discovered switches are
// logged; the chain itself never changes per source.
var FallbackListSelectors = []string{
	"table tbody tr",
	"table.list tbody tr",
	".board-list tr",
	"ul.list li",
	".event-list .item",
	"ul.board_list li",
}

// Config names the selectors used to locate fields within one item
type Config struct {
	Title       string
	Date        string
	Description string
	Location    string
	Link        string
}

// Fields holds the best-effort values extracted from one item. Missing
// matches yield empty strings, never errors.
type Fields struct {
	Title       string
	DateText    string
	Description string
	Location    string
	Link        string // raw href as found, not yet resolved
}

// FromSelection extracts fields from one list item
func FromSelection(s *goquery.Selection, cfg Config) Fields {
	var f Fields

	f.Title = extractTitle(s, cfg.Title)
	f.DateText = extractText(s, cfg.Date)
	f.Description = extractText(s, cfg.Description)
	f.Location = extractText(s, cfg.Location)
	f.Link = extractHref(s, cfg.Link, cfg.Title)

	return f
}

func extractTitle(s *goquery.Selection, selector string) string {
	if selector == "" {
		selector = "a"
	}
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if attr, exists := sel.Attr("title"); exists && strings.TrimSpace(attr) != "" {
		return strings.TrimSpace(attr)
	}
	return strings.TrimSpace(sel.Text())
}

func extractText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

func extractHref(s *goquery.Selection, linkSelector, titleSelector string) string {
	selector := linkSelector
	if selector == "" {
		selector = titleSelector
	}
	if selector == "" {
		selector = "a"
	}
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	href, exists := sel.Attr("href")
	if !exists {
		return ""
	}
	return strings.TrimSpace(href)
}

// MeaningfulTitle reports whether a title carries at least two letters or
// digits. Items failing this are rejected outright.
func MeaningfulTitle(title string) bool {
	count := 0
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// FindItems locates list items in a document. When the primary selector
// matches zero elements the fixed fallback chain is walked in order and the
// first selector with matches is used instead; the switch is logged.
func FindItems(doc *goquery.Document, primary string) (*goquery.Selection, string) {
	if primary != "" {
		if sel := doc.Find(primary); sel.Length() > 0 {
			return sel, primary
		}
		logger.Warn("list selector %q matched nothing, trying fallbacks", primary)
	}

	for _, fallback := range FallbackListSelectors {
		if fallback == primary {
			continue
		}
		if sel := doc.Find(fallback); sel.Length() > 0 {
			logger.Info("fallback selector %q matched %d items", fallback, sel.Length())
			return sel, fallback
		}
	}

	return doc.Find(primary), primary
}
