package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"golang.org/x/time/rate"
)

// Browser fetches pages through headless Chrome so JS-rendered content
// (engagement feeds, infinite-scroll listings) is present in the body.
// Enabled via sources.enable_javascript; everything else uses Fetcher.
type Browser struct {
	userAgent string
	waitTime  time.Duration
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

var _ interfaces.PageFetcher = (*Browser)(nil)

// NewBrowser creates the chromedp-backed fetcher.
func NewBrowser(cfg *common.SourcesConfig, logger arbor.ILogger) *Browser {
	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}
	wait := cfg.JavaScriptWaitTime
	if wait <= 0 {
		wait = 3 * time.Second
	}

	return &Browser{
		userAgent: cfg.UserAgent,
		waitTime:  wait,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
	}
}

// Fetch navigates to the URL in a fresh browser context and returns the
// rendered document after the configured settle time.
func (b *Browser) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	b.logger.Debug().Str("url", url).Msg("Rendering page in browser")

	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(url),
		chromedp.Sleep(b.waitTime),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch failed for %s: %w", url, err)
	}

	return &models.FetchResult{
		URL:         url,
		StatusCode:  200,
		Body:        html,
		ContentType: "text/html",
		Rendered:    true,
	}, nil
}
