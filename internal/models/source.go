package models

import (
	"time"
)

// CommunityPost is one discussion thread returned by a community source.
// Comments are flattened; the community worker scores the post from title,
// body and top comments together.
type CommunityPost struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Author   string    `json:"author"`
	URL      string    `json:"url"`
	Subforum string    `json:"subforum,omitempty"`
	Score    int       `json:"score"`
	Comments []string  `json:"comments,omitempty"`
	Created  time.Time `json:"created"`
}

// NewsItem is one article summary from a funding-news listing page.
type NewsItem struct {
	Company       string    `json:"company"`
	FundingAmount string    `json:"funding_amount,omitempty"`
	Headline      string    `json:"headline"`
	URL           string    `json:"url"`
	Published     time.Time `json:"published,omitempty"`
	Snippet       string    `json:"snippet,omitempty"`
}

// OrgPost is one post on a company page.
type OrgPost struct {
	URL     string `json:"url"`
	Text    string `json:"text"`
	AgeText string `json:"age_text,omitempty"`
}

// Engager is a person who reacted to or commented on an org post.
type Engager struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// SearchResult is one grounded web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// FetchResult carries a fetched page body plus transport metadata.
type FetchResult struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	Rendered    bool   `json:"rendered"` // true when fetched through the JS-rendering browser
}

// LeadRecord is a stored lead joined to its run for search results.
type LeadRecord struct {
	RunID     string    `json:"run_id"`
	Lead      Lead      `json:"lead"`
	StoredAt  time.Time `json:"stored_at"`
	RunStatus RunStatus `json:"run_status,omitempty"`
}
