package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"golang.org/x/time/rate"
)

// Fetcher is the plain HTTP page fetcher. It throttles itself with a rate
// limiter seeded from the configured request delay and caps response bodies
// at the configured size.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	logger    arbor.ILogger
}

var _ interfaces.PageFetcher = (*Fetcher)(nil)

// NewFetcher creates the HTTP fetcher from the sources config.
func NewFetcher(cfg *common.SourcesConfig, logger arbor.ILogger) *Fetcher {
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodySize)
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// Fetch retrieves a URL. Transport failures return an error with a nil
// result; HTTP error statuses return both the result and an error so
// callers can inspect the status.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	f.logger.Debug().Str("url", url).Msg("Fetching page")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w", url, err)
	}

	result := &models.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
	}

	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return result, nil
}
