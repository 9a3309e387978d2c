package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// maxTopComments bounds the comments attached per post. Scoring reads the
// thread head, not the whole discussion.
const maxTopComments = 8

// RedditSource searches a Reddit-compatible JSON API for discussion posts.
// All traffic goes through the injected fetcher, which owns throttling.
type RedditSource struct {
	baseURL string
	fetcher interfaces.PageFetcher
	logger  arbor.ILogger
}

var _ interfaces.CommunitySource = (*RedditSource)(nil)

// NewRedditSource creates the community source. baseURL is the API root,
// e.g. "https://www.reddit.com".
func NewRedditSource(baseURL string, fetcher interfaces.PageFetcher, logger arbor.ILogger) *RedditSource {
	return &RedditSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		logger:  logger,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

type redditComment struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Search runs one query against the search endpoint and attaches top-level
// comments to each post that has any.
func (s *RedditSource) Search(ctx context.Context, query string, limit int) ([]models.CommunityPost, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort", "relevance")
	params.Set("t", "year")

	searchURL := fmt.Sprintf("%s/search.json?%s", s.baseURL, params.Encode())
	result, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("community search failed: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal([]byte(result.Body), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	posts := make([]models.CommunityPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		converted := models.CommunityPost{
			ID:       post.ID,
			Title:    post.Title,
			Body:     post.Selftext,
			Author:   post.Author,
			URL:      s.baseURL + post.Permalink,
			Subforum: post.Subreddit,
			Score:    post.Score,
			Created:  time.Unix(int64(post.CreatedUTC), 0),
		}

		if post.NumComments > 0 && post.Permalink != "" {
			comments, err := s.fetchComments(ctx, post.Permalink)
			if err != nil {
				s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to fetch comments")
			} else {
				converted.Comments = comments
			}
		}

		posts = append(posts, converted)
	}

	s.logger.Debug().
		Str("query", query).
		Int("posts", len(posts)).
		Msg("Community search completed")

	return posts, nil
}

// fetchComments loads the top-level comments of a post. The comments
// endpoint returns two listings: the post itself, then its comment tree.
func (s *RedditSource) fetchComments(ctx context.Context, permalink string) ([]string, error) {
	commentsURL := fmt.Sprintf("%s%s.json?limit=%d&depth=1", s.baseURL, strings.TrimRight(permalink, "/"), maxTopComments)
	result, err := s.fetcher.Fetch(ctx, commentsURL)
	if err != nil {
		return nil, err
	}

	var listings []json.RawMessage
	if err := json.Unmarshal([]byte(result.Body), &listings); err != nil {
		return nil, fmt.Errorf("failed to parse comments response: %w", err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var tree struct {
		Data struct {
			Children []struct {
				Data redditComment `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(listings[1], &tree); err != nil {
		return nil, fmt.Errorf("failed to parse comment tree: %w", err)
	}

	var comments []string
	for _, child := range tree.Data.Children {
		body := strings.TrimSpace(child.Data.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		comments = append(comments, body)
		if len(comments) >= maxTopComments {
			break
		}
	}
	return comments, nil
}
