package leads

import (
	"sort"

	"github.com/ternarybob/venator/internal/models"
)

// Aggregation is the output of one Aggregate call.
type Aggregation struct {
	Leads             []models.Lead
	TierCounts        map[string]int
	PlatformCounts    map[string]int
	DuplicatesRemoved int
}

// Aggregate produces the final ranked lead set: global dedupe (higher score
// wins, tie keeps the first encountered), stable sort by score descending,
// truncate to target, derive priority from score, count tiers and
// platforms. Pure: identical input yields identical output.
func Aggregate(admitted []models.Lead, target int) *Aggregation {
	// Dedupe keeping the best-scoring lead per key. Encounter order breaks
	// ties, so track the position of each kept lead for the stable sort.
	type kept struct {
		lead  models.Lead
		order int
	}
	byKey := make(map[string]*kept)
	order := make([]string, 0, len(admitted))
	duplicates := 0

	for i, lead := range admitted {
		key := lead.DedupeKey()
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = &kept{lead: lead, order: i}
			order = append(order, key)
			continue
		}
		duplicates++
		if lead.IntentScore > existing.lead.IntentScore {
			existing.lead = lead
		}
	}

	unique := make([]models.Lead, 0, len(order))
	for _, key := range order {
		unique = append(unique, byKey[key].lead)
	}

	// Stable sort preserves first-encountered order among equal scores.
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].IntentScore > unique[j].IntentScore
	})

	if target > 0 && len(unique) > target {
		unique = unique[:target]
	}

	tierCounts := make(map[string]int)
	platformCounts := make(map[string]int)
	for i := range unique {
		unique[i].Priority = models.PriorityForScore(unique[i].IntentScore)
		tierCounts[string(unique[i].Priority)]++
		platformCounts[unique[i].SourcePlatform]++
	}

	return &Aggregation{
		Leads:             unique,
		TierCounts:        tierCounts,
		PlatformCounts:    platformCounts,
		DuplicatesRemoved: duplicates,
	}
}
