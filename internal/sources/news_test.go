package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
)

const newsListBody = `<html><body>
<article>
	<h2><a href="/news/acme-raises-4-5m">Acme raises $4.5M to automate freelancer expenses</a></h2>
	<span class="company">Acme</span>
	<p>The fintech startup closed its seed round led by Example Ventures.</p>
	<time datetime="2026-08-20">Aug 20</time>
</article>
<article>
	<h2><a href="https://other.example.com/globex-secures-12m">Globex secures $12 million for payroll tooling</a></h2>
	<p>Series A round to expand the engineering team.</p>
</article>
<article>
	<h2>Opinion: the state of fintech</h2>
</article>
</body></html>`

func TestNewsFetchPage_ParsesListItems(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["page=2"] = newsListBody

	source := NewNewsScraper("https://news.example.com/funding", fetcher, nil, common.GetLogger())

	items, err := source.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Acme raises $4.5M to automate freelancer expenses", first.Headline)
	assert.Equal(t, "https://news.example.com/news/acme-raises-4-5m", first.URL)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "$4.5M", first.FundingAmount)
	assert.Contains(t, first.Snippet, "seed round")
	assert.Equal(t, 2026, first.Published.Year())

	// No .company element: derived from the headline marker.
	second := items[1]
	assert.Equal(t, "Globex", second.Company)
	assert.Equal(t, "$12 million", second.FundingAmount)
	assert.Equal(t, "https://other.example.com/globex-secures-12m", second.URL)
}

func TestNewsPageURL(t *testing.T) {
	fetcher := newFakeFetcher()

	plain := NewNewsScraper("https://news.example.com/funding", fetcher, nil, common.GetLogger())
	assert.Equal(t, "https://news.example.com/funding?page=3", plain.pageURL(3))

	query := NewNewsScraper("https://news.example.com/list?sort=new", fetcher, nil, common.GetLogger())
	assert.Equal(t, "https://news.example.com/list?sort=new&page=3", query.pageURL(3))

	pattern := NewNewsScraper("https://news.example.com/funding/page/%d", fetcher, nil, common.GetLogger())
	assert.Equal(t, "https://news.example.com/funding/page/3", pattern.pageURL(3))
}

func TestNewsFetchArticle_ConvertsToMarkdown(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["acme-raises"] = `<html><body>
		<nav>site chrome</nav>
		<article><h1>Acme raises $4.5M</h1><p>The round was led by <a href="/vc">Example Ventures</a>.</p></article>
	</body></html>`

	source := NewNewsScraper("https://news.example.com/funding", fetcher, nil, common.GetLogger())

	body, err := source.FetchArticle(context.Background(), "https://news.example.com/news/acme-raises")
	require.NoError(t, err)
	assert.Contains(t, body, "Acme raises $4.5M")
	assert.Contains(t, body, "Example Ventures")
	assert.NotContains(t, body, "site chrome")
}

func TestNewsFetchArticle_PDFUsesExtractor(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["release.pdf"] = "%PDF-1.4 raw bytes"

	extracted := "Acme announces its seed round."
	source := NewNewsScraper("https://news.example.com/funding", fetcher,
		func(data []byte) (string, error) { return extracted, nil }, common.GetLogger())

	body, err := source.FetchArticle(context.Background(), "https://news.example.com/release.pdf")
	require.NoError(t, err)
	assert.Equal(t, extracted, body)
}

func TestNewsFetchArticle_PDFWithoutExtractorFails(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["release.pdf"] = "%PDF-1.4 raw bytes"

	source := NewNewsScraper("https://news.example.com/funding", fetcher, nil, common.GetLogger())

	_, err := source.FetchArticle(context.Background(), "https://news.example.com/release.pdf")
	assert.Error(t, err)
}

func TestCompanyFromHeadline(t *testing.T) {
	tests := []struct {
		headline string
		want     string
	}{
		{"Acme raises $4.5M seed", "Acme"},
		{"Globex Labs secures $12M Series A", "Globex Labs"},
		{"Initech lands $3M to fix invoicing", "Initech"},
		{"Opinion: the state of fintech", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, companyFromHeadline(tt.headline), tt.headline)
	}
}
