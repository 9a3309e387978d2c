package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// EngagementScraper reads public company pages: recent posts, then the
// people commenting on each post. Company pages render most content with
// JS, so the injected fetcher is usually the browser.
type EngagementScraper struct {
	fetcher interfaces.PageFetcher
	logger  arbor.ILogger
}

var _ interfaces.EngagementSource = (*EngagementScraper)(nil)

// NewEngagementScraper creates the engagement source.
func NewEngagementScraper(fetcher interfaces.PageFetcher, logger arbor.ILogger) *EngagementScraper {
	return &EngagementScraper{fetcher: fetcher, logger: logger}
}

// OrgPosts returns up to limit recent posts from a company page feed.
func (s *EngagementScraper) OrgPosts(ctx context.Context, orgURL string, limit int) ([]models.OrgPost, error) {
	feedURL := strings.TrimRight(orgURL, "/") + "/posts"
	result, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch org feed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse org feed: %w", err)
	}

	base, _ := url.Parse(feedURL)

	var posts []models.OrgPost
	doc.Find("article, .feed-update, .org-post").EachWithBreak(func(i int, el *goquery.Selection) bool {
		post := models.OrgPost{
			Text:    strings.TrimSpace(el.Find(".post-text, .update-text, p").First().Text()),
			AgeText: strings.TrimSpace(el.Find(".post-age, time").First().Text()),
		}
		if href, ok := el.Find("a.post-link, a.update-link").First().Attr("href"); ok {
			post.URL = resolveURL(base, href)
		} else if urn, ok := el.Attr("data-post-url"); ok {
			post.URL = resolveURL(base, urn)
		}

		if post.URL != "" && post.Text != "" {
			posts = append(posts, post)
		}
		return limit <= 0 || len(posts) < limit
	})

	s.logger.Debug().
		Str("org_url", orgURL).
		Int("posts", len(posts)).
		Msg("Org feed fetched")

	return posts, nil
}

// Engagers returns the people who commented on a post.
func (s *EngagementScraper) Engagers(ctx context.Context, postURL string) ([]models.Engager, error) {
	result, err := s.fetcher.Fetch(ctx, postURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse post: %w", err)
	}

	base, _ := url.Parse(postURL)

	var engagers []models.Engager
	doc.Find(".comment, .engagement-item").Each(func(i int, el *goquery.Selection) {
		engager := models.Engager{
			Name:    strings.TrimSpace(el.Find(".comment-author, .engager-name").First().Text()),
			Comment: strings.TrimSpace(el.Find(".comment-text").First().Text()),
		}

		// Headlines read "Title at Company" on most profiles.
		headline := strings.TrimSpace(el.Find(".comment-headline, .engager-headline").First().Text())
		engager.Title, engager.Company = splitHeadline(headline)

		if href, ok := el.Find("a").First().Attr("href"); ok {
			engager.ProfileURL = resolveURL(base, href)
		}

		if engager.Name != "" {
			engagers = append(engagers, engager)
		}
	})

	s.logger.Debug().
		Str("post_url", postURL).
		Int("engagers", len(engagers)).
		Msg("Post engagers fetched")

	return engagers, nil
}

// splitHeadline breaks "Title at Company" into its parts. Headlines
// without " at " become the title alone.
func splitHeadline(headline string) (string, string) {
	if headline == "" {
		return "", ""
	}
	title, company, found := strings.Cut(headline, " at ")
	if !found {
		return strings.TrimSpace(headline), ""
	}
	return strings.TrimSpace(title), strings.TrimSpace(company)
}
