package helpers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Browser-like headers must be present
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>행사 목록</body></html>"))
	}))
	defer server.Close()

	body, err := FetchPage(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)

	data, err := io.ReadAll(body)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "행사 목록")
}

func TestFetchPageRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := FetchPage(context.Background(), server.URL, 5*time.Second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFetchPageBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchPage(context.Background(), server.URL, 5*time.Second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
}

func TestFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	data, err := FetchJSON(context.Background(), server.URL, 5*time.Second)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestResolveLink(t *testing.T) {
	page := "https://www.seocho.go.kr/site/seocho/ex/bbs/List.do?cbIdx=59"

	// Absolute links pass through
	assert.Equal(t, "https://other.example/x", ResolveLink(page, "https://other.example/x"))

	// Root-relative links resolve against the origin
	assert.Equal(t, "https://www.seocho.go.kr/foo/bar", ResolveLink(page, "/foo/bar"))

	// Relative script endpoints keep the referring page's directory
	got := ResolveLink(page, "View.do?seq=10")
	assert.Equal(t, "https://www.seocho.go.kr/site/seocho/ex/bbs/View.do?seq=10", got)

	assert.Equal(t, "", ResolveLink(page, "  "))
}
