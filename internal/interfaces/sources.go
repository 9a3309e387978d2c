// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:41:05 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// CommunitySource searches a discussion platform (Reddit, GitHub
// Discussions) and returns posts with their comment threads attached.
type CommunitySource interface {
	// Search runs one query and returns up to limit posts.
	Search(ctx context.Context, query string, limit int) ([]models.CommunityPost, error)
}

// NewsSource lists funding/news articles page by page and loads individual
// articles.
type NewsSource interface {
	// FetchPage returns the article summaries on one listing page. Page
	// numbers start at 1.
	FetchPage(ctx context.Context, page int) ([]models.NewsItem, error)

	// FetchArticle loads the article body for an item.
	FetchArticle(ctx context.Context, url string) (string, error)
}

// EngagementSource reads an organisation's public activity feed and the
// people engaging with it.
type EngagementSource interface {
	// OrgPosts returns recent posts for a company page URL.
	OrgPosts(ctx context.Context, orgURL string, limit int) ([]models.OrgPost, error)

	// Engagers returns the people who reacted to or commented on a post.
	Engagers(ctx context.Context, postURL string) ([]models.Engager, error)
}

// WebSearcher answers a search query with grounded results. Used to resolve
// company names to websites and people to profile URLs.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// PageFetcher retrieves a URL and reports the body plus transport metadata.
// Implementations throttle themselves; callers just fetch.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchResult, error)
}
