package helpers

import (
	"net/url"
	"path"
	"strings"
)

// ResolveLink turns a possibly relative href into an absolute URL against
// the page it was found on. Relative script endpoints (e.g. "List.do?page=2")
// keep the directory of the referring page rather than the site root.
func ResolveLink(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}

	if strings.HasPrefix(href, "/") {
		return base.Scheme + "://" + base.Host + href
	}

	// Relative target without a leading slash: resolve against the
	// referring page's directory, not the origin.
	dir := path.Dir(base.Path)
	if dir == "." {
		dir = ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base.Scheme + "://" + base.Host + dir + "/" + href
	}
	resolved := base.ResolveReference(ref)
	return resolved.String()
}
