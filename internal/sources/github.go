package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"golang.org/x/oauth2"
)

// GitHubSource searches GitHub issues and discussions as a community
// source. Useful for developer-tool products whose buyers ask for
// recommendations in repo threads rather than forums.
type GitHubSource struct {
	client *github.Client
	repos  []string
	logger arbor.ILogger
}

var _ interfaces.CommunitySource = (*GitHubSource)(nil)

// NewGitHubSource creates the GitHub community source. Without a token the
// client runs unauthenticated against the public API rate limits.
func NewGitHubSource(cfg *common.GitHubConfig, logger arbor.ILogger) *GitHubSource {
	var client *github.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}

	return &GitHubSource{
		client: client,
		repos:  cfg.Repos,
		logger: logger,
	}
}

// Search queries the issue search API, scoped to the configured repos when
// any are set, and attaches the first comments of each thread.
func (s *GitHubSource) Search(ctx context.Context, query string, limit int) ([]models.CommunityPost, error) {
	q := query + " in:title,body"
	for _, repo := range s.repos {
		q += " repo:" + repo
	}

	opts := &github.SearchOptions{
		Sort:        "comments",
		ListOptions: github.ListOptions{PerPage: limit},
	}
	result, _, err := s.client.Search.Issues(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("github search failed: %w", err)
	}

	posts := make([]models.CommunityPost, 0, len(result.Issues))
	for _, issue := range result.Issues {
		post := models.CommunityPost{
			ID:      fmt.Sprintf("%d", issue.GetID()),
			Title:   issue.GetTitle(),
			Body:    issue.GetBody(),
			Author:  issue.GetUser().GetLogin(),
			URL:     issue.GetHTMLURL(),
			Score:   issue.GetComments(),
			Created: issue.GetCreatedAt().Time,
		}

		owner, repo := splitRepositoryURL(issue.GetRepositoryURL())
		if owner != "" {
			post.Subforum = owner + "/" + repo
			if issue.GetComments() > 0 {
				comments, err := s.fetchComments(ctx, owner, repo, issue.GetNumber())
				if err != nil {
					s.logger.Warn().Err(err).Str("issue", post.URL).Msg("Failed to fetch issue comments")
				} else {
					post.Comments = comments
				}
			}
		}

		posts = append(posts, post)
		if len(posts) >= limit {
			break
		}
	}

	s.logger.Debug().
		Str("query", query).
		Int("posts", len(posts)).
		Msg("GitHub search completed")

	return posts, nil
}

func (s *GitHubSource) fetchComments(ctx context.Context, owner, repo string, number int) ([]string, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: maxTopComments},
	}
	comments, _, err := s.client.Issues.ListComments(ctx, owner, repo, number, opts)
	if err != nil {
		return nil, err
	}

	bodies := make([]string, 0, len(comments))
	for _, comment := range comments {
		body := strings.TrimSpace(comment.GetBody())
		if body == "" {
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// splitRepositoryURL extracts owner and repo from an API repository URL
// like "https://api.github.com/repos/owner/name".
func splitRepositoryURL(repoURL string) (string, string) {
	_, after, found := strings.Cut(repoURL, "/repos/")
	if !found {
		return "", ""
	}
	parts := strings.SplitN(after, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
