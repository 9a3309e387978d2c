package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// PDFExtractor turns raw PDF bytes into plain text. Injected so the news
// scraper can read press releases published as PDFs without owning the
// extraction code.
type PDFExtractor func(data []byte) (string, error)

// fundingPattern matches amounts like "$4.5M", "$12 million", "$1.2B".
var fundingPattern = regexp.MustCompile(`(?i)\$\s?\d+(?:\.\d+)?\s?(?:million|billion|[mbk])\b`)

// headlineMarkers split a funding headline into company and event.
var headlineMarkers = []string{" raises ", " lands ", " secures ", " closes ", " nabs ", " gets ", " announces "}

// NewsScraper reads a funding-news site: numbered listing pages of article
// summaries, then individual article bodies.
type NewsScraper struct {
	baseURL    string
	fetcher    interfaces.PageFetcher
	extractPDF PDFExtractor
	logger     arbor.ILogger
}

var _ interfaces.NewsSource = (*NewsScraper)(nil)

// NewNewsScraper creates the news source. baseURL may contain a "%d"
// placeholder for the page number; otherwise "?page=N" is appended.
// extractPDF may be nil, in which case PDF articles are skipped.
func NewNewsScraper(baseURL string, fetcher interfaces.PageFetcher, extractPDF PDFExtractor, logger arbor.ILogger) *NewsScraper {
	return &NewsScraper{
		baseURL:    baseURL,
		fetcher:    fetcher,
		extractPDF: extractPDF,
		logger:     logger,
	}
}

func (s *NewsScraper) pageURL(page int) string {
	if strings.Contains(s.baseURL, "%d") {
		return fmt.Sprintf(s.baseURL, page)
	}
	separator := "?"
	if strings.Contains(s.baseURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spage=%d", s.baseURL, separator, page)
}

// FetchPage returns the article summaries on one listing page. An empty
// slice with no error means the page exists but lists nothing; workers
// treat that as the end of the archive.
func (s *NewsScraper) FetchPage(ctx context.Context, page int) ([]models.NewsItem, error) {
	pageURL := s.pageURL(page)
	result, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news page %d: %w", page, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse news page %d: %w", page, err)
	}

	base, _ := url.Parse(pageURL)

	var items []models.NewsItem
	selection := doc.Find("article")
	if selection.Length() == 0 {
		selection = doc.Find(".news-item, .post")
	}
	selection.Each(func(i int, el *goquery.Selection) {
		item := s.parseListItem(el, base)
		if item.Headline != "" && item.URL != "" {
			items = append(items, item)
		}
	})

	s.logger.Debug().
		Int("page", page).
		Int("items", len(items)).
		Msg("News page fetched")

	return items, nil
}

func (s *NewsScraper) parseListItem(el *goquery.Selection, base *url.URL) models.NewsItem {
	var item models.NewsItem

	link := el.Find("h1 a, h2 a, h3 a").First()
	if link.Length() > 0 {
		item.Headline = strings.TrimSpace(link.Text())
		if href, ok := link.Attr("href"); ok {
			item.URL = resolveURL(base, href)
		}
	} else {
		item.Headline = strings.TrimSpace(el.Find("h1, h2, h3").First().Text())
		if href, ok := el.Find("a").First().Attr("href"); ok {
			item.URL = resolveURL(base, href)
		}
	}

	item.Company = strings.TrimSpace(el.Find(".company").First().Text())
	if item.Company == "" {
		item.Company = companyFromHeadline(item.Headline)
	}

	item.FundingAmount = fundingPattern.FindString(item.Headline)
	if item.FundingAmount == "" {
		item.FundingAmount = fundingPattern.FindString(el.Text())
	}

	item.Snippet = strings.TrimSpace(el.Find("p").First().Text())

	if datetime, ok := el.Find("time").First().Attr("datetime"); ok {
		item.Published = parseNewsDate(datetime)
	}

	return item
}

// FetchArticle loads an article body as markdown. PDF press releases go
// through the injected extractor.
func (s *NewsScraper) FetchArticle(ctx context.Context, articleURL string) (string, error) {
	result, err := s.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	if isPDF(articleURL, result.ContentType) {
		if s.extractPDF == nil {
			return "", fmt.Errorf("pdf article %s skipped: no extractor configured", articleURL)
		}
		text, err := s.extractPDF([]byte(result.Body))
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf article: %w", err)
		}
		return text, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %w", err)
	}

	for _, selector := range []string{"article", "main", ".content"} {
		section := doc.Find(selector).First()
		if section.Length() == 0 {
			continue
		}
		if html, err := section.Html(); err == nil {
			return ToMarkdown(html, articleURL), nil
		}
	}

	return strings.TrimSpace(doc.Find("body").Text()), nil
}

func isPDF(articleURL, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(articleURL), ".pdf")
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func companyFromHeadline(headline string) string {
	lower := strings.ToLower(headline)
	for _, marker := range headlineMarkers {
		if idx := strings.Index(lower, marker); idx > 0 {
			return strings.TrimSpace(headline[:idx])
		}
	}
	return ""
}

func parseNewsDate(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
