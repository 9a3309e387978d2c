package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/venator/internal/models"
)

func TestAggregate_DedupeKeepsHigherScore(t *testing.T) {
	in := []models.Lead{
		lead("Jane Doe", "Acme", models.PlatformCommunity, 80),
		lead("Jane Doe", "Acme", models.PlatformLinkedIn, 65),
	}

	agg := Aggregate(in, 10)

	assert.Len(t, agg.Leads, 1)
	assert.Equal(t, 80, agg.Leads[0].IntentScore)
	assert.Equal(t, models.PlatformCommunity, agg.Leads[0].SourcePlatform)
	assert.Equal(t, 1, agg.DuplicatesRemoved)
}

func TestAggregate_TieKeepsFirstEncountered(t *testing.T) {
	in := []models.Lead{
		lead("Jane Doe", "Acme", models.PlatformNews, 70),
		lead("jane doe", "acme", models.PlatformLinkedIn, 70),
	}

	agg := Aggregate(in, 10)

	assert.Len(t, agg.Leads, 1)
	assert.Equal(t, models.PlatformNews, agg.Leads[0].SourcePlatform)
}

func TestAggregate_SortStableAndTruncated(t *testing.T) {
	in := []models.Lead{
		lead("A", "Co1", models.PlatformCommunity, 60),
		lead("B", "Co2", models.PlatformNews, 90),
		lead("C", "Co3", models.PlatformLinkedIn, 60),
		lead("D", "Co4", models.PlatformNews, 75),
	}

	agg := Aggregate(in, 3)

	assert.Len(t, agg.Leads, 3)
	assert.Equal(t, []string{"B", "D", "A"}, []string{agg.Leads[0].Name, agg.Leads[1].Name, agg.Leads[2].Name},
		"descending by score, equal scores keep input order, truncated to target")
}

func TestAggregate_PriorityDerivedFromScore(t *testing.T) {
	in := []models.Lead{
		{Name: "Hot", IntentScore: 85, IntentSignal: "s", SourcePlatform: models.PlatformNews, Priority: models.PriorityCold},
		{Name: "Warm", IntentScore: 65, IntentSignal: "s", SourcePlatform: models.PlatformNews},
		{Name: "Cold", IntentScore: 40, SourcePlatform: models.PlatformNews, Priority: models.PriorityHot},
	}

	agg := Aggregate(in, 10)

	assert.Equal(t, models.PriorityHot, agg.Leads[0].Priority, "incoming priority is overridden")
	assert.Equal(t, models.PriorityWarm, agg.Leads[1].Priority)
	assert.Equal(t, models.PriorityCold, agg.Leads[2].Priority)
	assert.Equal(t, map[string]int{"hot": 1, "warm": 1, "cold": 1}, agg.TierCounts)
}

func TestAggregate_PlatformCountsUseWorkerTagVerbatim(t *testing.T) {
	in := []models.Lead{
		lead("A", "Co1", models.PlatformCommunity, 80),
		lead("B", "Co2", models.PlatformCommunity, 70),
		lead("C", "Co3", models.PlatformLinkedIn, 65),
	}

	agg := Aggregate(in, 10)

	assert.Equal(t, map[string]int{"community": 2, "linkedin": 1}, agg.PlatformCounts)
}

func TestAggregate_Deterministic(t *testing.T) {
	in := []models.Lead{
		lead("A", "Co1", models.PlatformCommunity, 62),
		lead("B", "Co2", models.PlatformNews, 91),
		lead("A", "Co1", models.PlatformLinkedIn, 55),
		lead("C", "Co3", models.PlatformNews, 62),
	}

	first := Aggregate(in, 3)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Aggregate(in, 3))
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	agg := Aggregate(nil, 5)
	assert.Empty(t, agg.Leads)
	assert.Zero(t, agg.DuplicatesRemoved)
}
