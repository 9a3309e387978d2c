package sources

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
)

const redditSearchBody = `{
	"data": {
		"children": [
			{"data": {
				"id": "abc1",
				"title": "Best expense tracking tool for freelancers?",
				"selftext": "I juggle invoices across three clients and spreadsheets are killing me.",
				"author": "freelance_dev",
				"permalink": "/r/freelance/comments/abc1/best_expense_tracking_tool/",
				"subreddit": "freelance",
				"score": 42,
				"num_comments": 2,
				"created_utc": 1755500000
			}},
			{"data": {
				"id": "abc2",
				"title": "Monthly accounting thread",
				"selftext": "",
				"author": "mod_bot",
				"permalink": "/r/freelance/comments/abc2/monthly_accounting_thread/",
				"subreddit": "freelance",
				"score": 5,
				"num_comments": 0,
				"created_utc": 1755400000
			}}
		]
	}
}`

const redditCommentsBody = `[
	{"data": {"children": []}},
	{"data": {"children": [
		{"data": {"body": "Try Expensify, it handles multi-client billing.", "author": "helper1"}},
		{"data": {"body": "[deleted]", "author": "[deleted]"}},
		{"data": {"body": "I built a spreadsheet template for this.", "author": "helper2"}}
	]}}
]`

func TestRedditSearch_ParsesPostsAndComments(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["search.json"] = redditSearchBody
	fetcher.pages["comments/abc1"] = redditCommentsBody

	source := NewRedditSource("https://www.reddit.com", fetcher, common.GetLogger())

	posts, err := source.Search(context.Background(), "best expense tool", 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal(t, "abc1", first.ID)
	assert.Equal(t, "Best expense tracking tool for freelancers?", first.Title)
	assert.Equal(t, "freelance_dev", first.Author)
	assert.Equal(t, "freelance", first.Subforum)
	assert.Equal(t, 42, first.Score)
	assert.Equal(t, "https://www.reddit.com/r/freelance/comments/abc1/best_expense_tracking_tool/", first.URL)
	// Deleted comments are dropped.
	require.Len(t, first.Comments, 2)
	assert.Contains(t, first.Comments[0], "Expensify")

	// No comment fetch for the zero-comment post.
	second := posts[1]
	assert.Empty(t, second.Comments)
	for _, url := range fetcher.requests() {
		assert.NotContains(t, url, "comments/abc2")
	}
}

func TestRedditSearch_EncodesQuery(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["search.json"] = `{"data":{"children":[]}}`

	source := NewRedditSource("https://www.reddit.com", fetcher, common.GetLogger())

	_, err := source.Search(context.Background(), "best tool for freelancers?", 25)
	require.NoError(t, err)

	requests := fetcher.requests()
	require.Len(t, requests, 1)
	assert.True(t, strings.HasPrefix(requests[0], "https://www.reddit.com/search.json?"))
	assert.Contains(t, requests[0], "limit=25")
	assert.Contains(t, requests[0], "q=best+tool+for+freelancers%3F")
}

func TestRedditSearch_FetchErrorSurfaces(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["search.json"] = fmt.Errorf("connection refused")

	source := NewRedditSource("https://www.reddit.com", fetcher, common.GetLogger())

	_, err := source.Search(context.Background(), "anything", 10)
	assert.Error(t, err)
}

func TestRedditSearch_CommentFailureKeepsPost(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["search.json"] = redditSearchBody
	fetcher.errs["comments/abc1"] = fmt.Errorf("timeout")

	source := NewRedditSource("https://www.reddit.com", fetcher, common.GetLogger())

	posts, err := source.Search(context.Background(), "best expense tool", 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Empty(t, posts[0].Comments)
}
