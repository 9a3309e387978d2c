package leads

import (
	"sort"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// Context is the per-run arena: the record of work already performed and
// identities already emitted. It is the only mutable state shared between
// the supervisor and its workers, so every operation takes the one mutex
// and performs its read-then-write as a single critical section. Sets only
// grow; nothing is ever removed during a run.
//
// Each run constructs its own Context. Concurrent runs must not dedupe
// against each other, so there is no cross-run state here.
type Context struct {
	mu sync.Mutex

	newsPagesFetched   map[int]struct{}
	queriesUsed        []string
	queriesUsedSet     map[string]struct{}
	competitorsScraped []string
	competitorsSet     map[string]struct{}
	emittedIndex       map[string]int

	admitted   []models.Lead
	duplicates int
}

// NewContext creates an empty per-run context.
func NewContext() *Context {
	return &Context{
		newsPagesFetched: make(map[int]struct{}),
		queriesUsedSet:   make(map[string]struct{}),
		competitorsSet:   make(map[string]struct{}),
		emittedIndex:     make(map[string]int),
	}
}

// AddLeads admits the leads whose dedupe key has not been seen in this run
// and returns only the newly admitted leads. This is the single source of
// per-run deduplication across workers and rounds. On a key collision the
// higher-scoring lead is kept: an incoming duplicate with a better score
// replaces the stored one in place, so the key set and the admitted count
// stay monotonic while the best version survives to aggregation.
func (c *Context) AddLeads(incoming []models.Lead) []models.Lead {
	c.mu.Lock()
	defer c.mu.Unlock()

	var admitted []models.Lead
	for _, lead := range incoming {
		key := lead.DedupeKey()
		if idx, seen := c.emittedIndex[key]; seen {
			c.duplicates++
			if lead.IntentScore > c.admitted[idx].IntentScore {
				c.admitted[idx] = lead
			}
			continue
		}
		c.emittedIndex[key] = len(c.admitted)
		c.admitted = append(c.admitted, lead)
		admitted = append(admitted, lead)
	}
	return admitted
}

// NextNewsPages returns the n page numbers immediately after the highest
// page fetched so far (starting at 1 when none have been) and marks them
// fetched in the same critical section, so two callers can never be handed
// the same page.
func (c *Context) NextNewsPages(n int) []int {
	if n <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := 1
	for page := range c.newsPagesFetched {
		if page >= start {
			start = page + 1
		}
	}

	pages := make([]int, 0, n)
	for i := 0; i < n; i++ {
		page := start + i
		c.newsPagesFetched[page] = struct{}{}
		pages = append(pages, page)
	}
	return pages
}

// MarkNewsPages records pages fetched outside NextNewsPages (the Phase II
// initial fetch).
func (c *Context) MarkNewsPages(pages []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, page := range pages {
		if page > 0 {
			c.newsPagesFetched[page] = struct{}{}
		}
	}
}

// MarkQueriesUsed appends community queries to the used set, preserving
// first-use order and skipping duplicates.
func (c *Context) MarkQueriesUsed(queries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queries {
		if q == "" {
			continue
		}
		if _, seen := c.queriesUsedSet[q]; seen {
			continue
		}
		c.queriesUsedSet[q] = struct{}{}
		c.queriesUsed = append(c.queriesUsed, q)
	}
}

// MarkCompetitorsScraped appends competitor names to the scraped set,
// preserving first-use order and skipping duplicates.
func (c *Context) MarkCompetitorsScraped(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, seen := c.competitorsSet[name]; seen {
			continue
		}
		c.competitorsSet[name] = struct{}{}
		c.competitorsScraped = append(c.competitorsScraped, name)
	}
}

// UnusedQueries returns the candidates not yet marked used, in candidate
// order.
func (c *Context) UnusedQueries(candidates []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return unusedOf(candidates, c.queriesUsedSet)
}

// UnusedCompetitors returns the candidates not yet marked scraped, in
// candidate order.
func (c *Context) UnusedCompetitors(candidates []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return unusedOf(candidates, c.competitorsSet)
}

// unusedOf filters candidates against a used set. Callers hold the mutex.
func unusedOf(candidates []string, used map[string]struct{}) []string {
	var unused []string
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, seen := used[candidate]; !seen {
			unused = append(unused, candidate)
		}
	}
	return unused
}

// Count returns the number of leads admitted so far.
func (c *Context) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.admitted)
}

// Duplicates returns how many incoming leads collided with an already
// admitted key, whether they were discarded or replaced the stored lead.
func (c *Context) Duplicates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duplicates
}

// Admitted returns a copy of every lead admitted so far, in admission order.
func (c *Context) Admitted() []models.Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Lead, len(c.admitted))
	copy(out, c.admitted)
	return out
}

// Usage snapshots the consumed resource space for compensation planning.
func (c *Context) Usage(target int) models.ResourceUsage {
	c.mu.Lock()
	defer c.mu.Unlock()

	pages := make([]int, 0, len(c.newsPagesFetched))
	for page := range c.newsPagesFetched {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	queries := make([]string, len(c.queriesUsed))
	copy(queries, c.queriesUsed)
	competitors := make([]string, len(c.competitorsScraped))
	copy(competitors, c.competitorsScraped)

	return models.ResourceUsage{
		LeadCount:          len(c.admitted),
		Target:             target,
		NewsPagesFetched:   pages,
		QueriesUsed:        queries,
		CompetitorsScraped: competitors,
	}
}
