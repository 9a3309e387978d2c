package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

type fakeEngagementSource struct {
	postsByOrg    map[string][]models.OrgPost
	engagersByURL map[string][]models.Engager
	orgErrs       map[string]error
}

func (f *fakeEngagementSource) OrgPosts(ctx context.Context, orgURL string, limit int) ([]models.OrgPost, error) {
	if err := f.orgErrs[orgURL]; err != nil {
		return nil, err
	}
	posts := f.postsByOrg[orgURL]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *fakeEngagementSource) Engagers(ctx context.Context, postURL string) ([]models.Engager, error) {
	return f.engagersByURL[postURL], nil
}

type fakeSearcher struct {
	results map[string][]models.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	for key, results := range f.results {
		if strings.Contains(query, key) {
			return results, nil
		}
	}
	return nil, nil
}

// noSellers answers the seller filter with all-buyer verdicts.
type noSellers struct {
	sellerNames map[string]bool
	err         error
}

func (c *noSellers) Classify(ctx context.Context, prompt string, schema *interfaces.SchemaField, out interface{}) error {
	if c.err != nil {
		return c.err
	}
	var rows []map[string]interface{}
	for i := 0; ; i++ {
		marker := fmt.Sprintf("%d. ", i)
		idx := strings.Index(prompt, marker)
		if idx < 0 {
			break
		}
		rest := prompt[idx+len(marker):]
		end := strings.Index(rest, " --")
		if end < 0 {
			break
		}
		rows = append(rows, map[string]interface{}{
			"index":     i,
			"is_seller": c.sellerNames[rest[:end]],
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func engager(name, profileURL, comment string) models.Engager {
	return models.Engager{Name: name, ProfileURL: profileURL, Comment: comment}
}

func newTestWorker(names []string, src interfaces.EngagementSource, search interfaces.WebSearcher, cls interfaces.Classifier) *Worker {
	return NewWorker(names, "an expense tool", "https://www.linkedin.com",
		src, search, cls, time.Second, common.GetLogger(), nil)
}

func TestRun_ExtractsEngagersFromCompetitorPosts(t *testing.T) {
	orgURL := "https://www.linkedin.com/company/rivalco"
	postURL := orgURL + "/posts/1"
	src := &fakeEngagementSource{
		postsByOrg: map[string][]models.OrgPost{
			orgURL: {{URL: postURL, Text: "We just shipped v2"}},
		},
		engagersByURL: map[string][]models.Engager{
			postURL: {
				engager("Jane Doe", "https://linkedin.com/in/janedoe", "Does this handle receipts?"),
			},
		},
	}
	search := &fakeSearcher{results: map[string][]models.SearchResult{
		"RivalCo": {{Title: "RivalCo | LinkedIn", URL: orgURL}},
	}}

	result := newTestWorker([]string{"RivalCo"}, src, search, &noSellers{}).Run(context.Background(), 10)

	require.True(t, result.Success)
	require.Len(t, result.Leads, 1)
	lead := result.Leads[0]
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, 65, lead.IntentScore)
	assert.Contains(t, lead.IntentSignal, "RivalCo")
	assert.Contains(t, lead.IntentSignal, "receipts")
	assert.Equal(t, models.PlatformLinkedIn, lead.SourcePlatform)
	assert.Equal(t, postURL, lead.SourceURL)
}

func TestRun_SlugFallbackWhenSearchFails(t *testing.T) {
	slugURL := "https://www.linkedin.com/company/rival-co"
	postURL := slugURL + "/posts/1"
	src := &fakeEngagementSource{
		postsByOrg: map[string][]models.OrgPost{
			slugURL: {{URL: postURL, Text: "hiring"}},
		},
		engagersByURL: map[string][]models.Engager{
			postURL: {engager("Bob Roe", "https://linkedin.com/in/bobroe", "congrats")},
		},
	}

	result := newTestWorker([]string{"Rival Co."}, src, &fakeSearcher{err: fmt.Errorf("quota")}, &noSellers{}).Run(context.Background(), 10)

	require.True(t, result.Success)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "Bob Roe", result.Leads[0].Name)
}

func TestRun_DedupesEngagersByProfileURL(t *testing.T) {
	orgURL := "https://www.linkedin.com/company/rivalco"
	p1, p2 := orgURL+"/posts/1", orgURL+"/posts/2"
	src := &fakeEngagementSource{
		postsByOrg: map[string][]models.OrgPost{
			orgURL: {{URL: p1, Text: "post one"}, {URL: p2, Text: "post two"}},
		},
		engagersByURL: map[string][]models.Engager{
			p1: {engager("Jane Doe", "https://www.linkedin.com/in/janedoe/", "nice")},
			p2: {engager("Jane Doe", "https://linkedin.com/in/janedoe", "cool")},
		},
	}
	search := &fakeSearcher{results: map[string][]models.SearchResult{
		"RivalCo": {{URL: orgURL}},
	}}

	result := newTestWorker([]string{"RivalCo"}, src, search, &noSellers{}).Run(context.Background(), 10)

	require.True(t, result.Success)
	assert.Len(t, result.Leads, 1, "same profile across posts on one page dedupes")
}

func TestRun_SellerFiltered(t *testing.T) {
	orgURL := "https://www.linkedin.com/company/rivalco"
	postURL := orgURL + "/posts/1"
	src := &fakeEngagementSource{
		postsByOrg: map[string][]models.OrgPost{orgURL: {{URL: postURL, Text: "launch"}}},
		engagersByURL: map[string][]models.Engager{
			postURL: {
				engager("Buyer Person", "https://linkedin.com/in/buyer", "how much is this?"),
				engager("Vendor Person", "https://linkedin.com/in/vendor", "check out my tool"),
			},
		},
	}
	search := &fakeSearcher{results: map[string][]models.SearchResult{"RivalCo": {{URL: orgURL}}}}
	cls := &noSellers{sellerNames: map[string]bool{"Vendor Person": true}}

	result := newTestWorker([]string{"RivalCo"}, src, search, cls).Run(context.Background(), 10)

	require.True(t, result.Success)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "Buyer Person", result.Leads[0].Name)
}

func TestRun_AllOrgFetchesFailFailsWorker(t *testing.T) {
	urlA := "https://www.linkedin.com/company/a-co"
	urlB := "https://www.linkedin.com/company/b-co"
	src := &fakeEngagementSource{orgErrs: map[string]error{
		urlA: fmt.Errorf("http 999"),
		urlB: fmt.Errorf("http 999"),
	}}

	result := newTestWorker([]string{"A Co", "B Co"}, src, &fakeSearcher{}, &noSellers{}).Run(context.Background(), 10)

	assert.False(t, result.Success)
	assert.Equal(t, "fetch", result.LastStep)
	assert.Contains(t, result.Error, "org fetches failed")
}

func TestRun_PartialOrgFailureTolerated(t *testing.T) {
	urlA := "https://www.linkedin.com/company/a-co"
	urlB := "https://www.linkedin.com/company/b-co"
	postURL := urlB + "/posts/1"
	src := &fakeEngagementSource{
		orgErrs:    map[string]error{urlA: fmt.Errorf("http 999")},
		postsByOrg: map[string][]models.OrgPost{urlB: {{URL: postURL, Text: "news"}}},
		engagersByURL: map[string][]models.Engager{
			postURL: {engager("Jane Doe", "https://linkedin.com/in/janedoe", "interested")},
		},
	}

	result := newTestWorker([]string{"A Co", "B Co"}, src, &fakeSearcher{}, &noSellers{}).Run(context.Background(), 10)

	require.True(t, result.Success)
	assert.Len(t, result.Leads, 1)
}

func TestRun_NoCompetitorsSucceedsEmpty(t *testing.T) {
	result := newTestWorker(nil, &fakeEngagementSource{}, &fakeSearcher{}, &noSellers{}).Run(context.Background(), 5)

	assert.True(t, result.Success)
	assert.Empty(t, result.Leads)
	assert.Empty(t, result.Error)
}

func TestRun_TruncatesToTarget(t *testing.T) {
	orgURL := "https://www.linkedin.com/company/rivalco"
	postURL := orgURL + "/posts/1"
	var engagers []models.Engager
	for i := 0; i < 6; i++ {
		engagers = append(engagers, engager(
			fmt.Sprintf("Person %d", i),
			fmt.Sprintf("https://linkedin.com/in/person%d", i),
			"interesting"))
	}
	src := &fakeEngagementSource{
		postsByOrg:    map[string][]models.OrgPost{orgURL: {{URL: postURL, Text: "post"}}},
		engagersByURL: map[string][]models.Engager{postURL: engagers},
	}
	search := &fakeSearcher{results: map[string][]models.SearchResult{"RivalCo": {{URL: orgURL}}}}

	result := newTestWorker([]string{"RivalCo"}, src, search, &noSellers{}).Run(context.Background(), 3)

	require.True(t, result.Success)
	assert.Len(t, result.Leads, 3)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "rival-co", slugify("Rival Co."))
	assert.Equal(t, "acme-2", slugify("  Acme 2 "))
	assert.Equal(t, "ab-cd", slugify("Ab__Cd!!"))
}

func TestEngagementSignal(t *testing.T) {
	sig := engagementSignal("RivalCo", models.Engager{Comment: "how do I migrate?"}, models.OrgPost{})
	assert.Contains(t, sig, "RivalCo")
	assert.Contains(t, sig, "how do I migrate?")

	long := strings.Repeat("x", 200)
	sig = engagementSignal("RivalCo", models.Engager{}, models.OrgPost{Text: long})
	assert.Less(t, len(sig), 200)

	sig = engagementSignal("RivalCo", models.Engager{}, models.OrgPost{})
	assert.Equal(t, `Engaged with RivalCo's page`, sig)
}
