package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// fakeFetcher serves canned bodies by URL substring and records every
// request it gets.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	errs      map[string]error
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	f.mu.Lock()
	f.requested = append(f.requested, url)
	f.mu.Unlock()

	for key, err := range f.errs {
		if strings.Contains(url, key) {
			return nil, err
		}
	}
	for key, body := range f.pages {
		if strings.Contains(url, key) {
			return &models.FetchResult{URL: url, StatusCode: 200, Body: body, ContentType: "text/html"}, nil
		}
	}
	return nil, fmt.Errorf("no canned page for %s", url)
}

func (f *fakeFetcher) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}
