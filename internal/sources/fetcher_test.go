package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
)

func testSourcesConfig() *common.SourcesConfig {
	return &common.SourcesConfig{
		UserAgent:      "venator-test/1.0",
		RequestTimeout: 5 * time.Second,
		RequestDelay:   time.Millisecond,
		MaxBodySize:    1024,
	}
}

func TestFetcher_SetsHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(testSourcesConfig(), common.GetLogger())

	result, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "venator-test/1.0", gotUA)
	assert.Equal(t, "en-US,en;q=0.9", gotLang)
	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.ContentType, "text/html")
	assert.Equal(t, "<html>ok</html>", result.Body)
	assert.False(t, result.Rendered)
}

func TestFetcher_CapsBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	fetcher := NewFetcher(testSourcesConfig(), common.GetLogger())

	result, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, result.Body, 1024)
}

func TestFetcher_ErrorStatusReturnsResultAndError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(testSourcesConfig(), common.GetLogger())

	result, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 404, result.StatusCode)
}

func TestFetcher_CancelledContext(t *testing.T) {
	fetcher := NewFetcher(testSourcesConfig(), common.GetLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "http://127.0.0.1:0/never")
	assert.Error(t, err)
}

func TestToMarkdown(t *testing.T) {
	markdown := ToMarkdown(`<h1>Title</h1><p>Body with <a href="/link">a link</a>.</p>`, "https://example.com")
	assert.Contains(t, markdown, "Title")
	assert.Contains(t, markdown, "Body with")
	assert.Contains(t, markdown, "https://example.com/link", "relative links resolve against the page URL, scheme included")
}

func TestToMarkdown_AbsoluteLinksUntouched(t *testing.T) {
	markdown := ToMarkdown(`<p><a href="https://other.example/x">elsewhere</a></p>`, "https://example.com/articles?page=2")
	assert.Contains(t, markdown, "https://other.example/x")
}
